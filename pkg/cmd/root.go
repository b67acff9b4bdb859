package cmd

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spcl/faas-profiler-go/pkg/cmd/inspect"
	"github.com/spcl/faas-profiler-go/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func init() {
	// debug flag
	pflag.BoolVar(&config.Debug, "debug", false, "Enable debug mode")
}

// NewViper creates a new viper instance configured.
func NewViper() *viper.Viper {
	vp := viper.New()

	// read config from a file
	vp.SetConfigName("config") // name of config file (without extension)
	vp.SetConfigType("yaml")   // useful if the given config file does not have the extension in the name
	vp.AddConfigPath(".")      // look for a config in the working directory first

	// read config from environment variables
	vp.SetEnvPrefix("faasprofiler") // env var must start with FAASPROFILER_
	// replace - by _ for environment variable names
	// (eg: the env var for sampling-rate is SAMPLING_RATE)
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv() // read in environment variables that match
	return vp
}

func New(vp *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "faasprofiler",
		Short: "faasprofiler",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if vp.GetBool("debug") {
				config.Debug = true
			}
			if config.Debug {
				logrus.SetLevel(logrus.DebugLevel)
				logrus.Info("enabled debug mode")
			}
			return nil
		},
	}
	return root
}

func Execute() {
	vp := NewViper()

	root := New(vp)
	root.AddCommand(inspect.New(vp))

	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}
