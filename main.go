package main

import "github.com/spcl/faas-profiler-go/pkg/cmd"

func main() {
	cmd.Execute()
}
