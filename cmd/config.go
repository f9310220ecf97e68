package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/parkprofile/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Prints the configuration after merging defaults, config.yaml, .env and PARKPROFILE_* variables.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printConfig(os.Stdout, cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// printConfig writes c as YAML. The database URL is masked.
func printConfig(w io.Writer, c *config.Config) error {
	shown := *c
	if shown.Store.DatabaseURL != "" && shown.Store.Driver == "postgres" {
		shown.Store.DatabaseURL = "****"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(shown); err != nil {
		return eris.Wrap(err, "encode config")
	}
	return enc.Close()
}
