package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigother/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		format, err := parseOutputFormat(versionFormat, FormatHuman, FormatJSON, FormatYAML)
		if err != nil {
			exitWithError(err)
		}
		out, err := FormatResponse(version.Get(), format)
		if err != nil {
			exitWithError(err)
		}
		fmt.Println(out)
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(versionCmd)
}
