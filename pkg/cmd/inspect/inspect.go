package inspect

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spcl/faas-profiler-go/pkg/tracer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// New builds the `inspect` command, which decodes exported record files and
// prints their span trees.
func New(vp *viper.Viper) *cobra.Command {
	inspect := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Decode exported trace records and print their span trees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				payload, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				rec, err := tracer.Decode(payload)
				if err != nil {
					logrus.WithError(err).Errorf("faasprofiler couldn't decode %s", path)
					return err
				}
				printRecord(cmd, rec)
			}
			return nil
		},
	}
	return inspect
}

func printRecord(cmd *cobra.Command, rec *tracer.Record) {
	cmd.Printf("trace %s (%d spans)\n", rec.TraceID, len(rec.Spans))
	if rec.FunctionContext != nil {
		cmd.Printf("  function %s\n", rec.FunctionContext.FunctionKey())
	}
	if flags := recordFlags(rec); len(flags) > 0 {
		cmd.Printf("  flags %s\n", strings.Join(flags, ","))
	}
	if rec.RootSpanID != "" {
		printSpanTree(cmd, rec, rec.RootSpanID, 1)
	}
	for _, out := range rec.OutboundContexts {
		cmd.Printf("  outbound %s/%s %s\n", out.Service, out.Operation, out.Identifier)
	}
	if len(rec.Data) > 0 {
		names := make([]string, 0, len(rec.Data))
		for name := range rec.Data {
			names = append(names, name)
		}
		sort.Strings(names)
		cmd.Printf("  data %s\n", strings.Join(names, ","))
	}
}

func printSpanTree(cmd *cobra.Command, rec *tracer.Record, spanID string, depth int) {
	span := rec.Span(spanID)
	if span == nil {
		return
	}
	cmd.Printf("%s%s %s [%s] %v\n",
		strings.Repeat("  ", depth), span.SpanID, span.Name, span.Status, span.Duration())
	for _, child := range rec.Children(spanID) {
		printSpanTree(cmd, rec, child.SpanID, depth+1)
	}
}

func recordFlags(rec *tracer.Record) []string {
	var flags []string
	if rec.LowConfidenceIDs {
		flags = append(flags, "low_confidence_ids")
	}
	if rec.Truncated {
		flags = append(flags, fmt.Sprintf("truncated(%d dropped)", rec.DroppedSpans))
	}
	if rec.SpanLeaked {
		flags = append(flags, "span_leaked")
	}
	return flags
}
