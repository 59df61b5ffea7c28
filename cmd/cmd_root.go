package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "becool",
	Short: "find the coolest zip code near you",
	Long: `
becool looks up every zip code within a radius of yours, asks Open-Meteo
for each one's forecast daily maximum temperature, and tells you which is
expected to stay coolest today. Best suited for microclimates.
`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (default config/{ENV_NAME}.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
}
