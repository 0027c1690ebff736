package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
)

var (
	serverURL string
	noColor   bool
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "sift",
	Short: "Fact-check claims and images with streaming SIFT analysis",
	Long: `sift submits claims or images to a sift-server for analysis and
streams the report back as it is generated. After the initial report
you can ask follow-up questions in the same conversation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg := logging.DefaultConfig()
		if verbose {
			cfg.Level = logging.ParseLevel("debug")
		} else {
			cfg.Level = logging.ParseLevel("error")
		}
		cfg.Pretty = true
		logging.Init(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8613", "sift-server base URL")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(modelsCmd)
}
