package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/siteforge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, commit, build time, Go version and platform.

Examples:
  siteforge version                 # Short version
  siteforge version --detailed      # One line per field
  siteforge version --format json   # Machine readable`,
	RunE: runVersionCommand,
}

var (
	versionFormat   = newFormatValue("text", "text", FormatJSON, FormatYAML)
	versionDetailed bool
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().VarP(versionFormat, "format", "f", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	switch {
	case versionFormat.String() != "text":
		return writeStructured(w, versionFormat.String(), version.GetBuildInfo())
	case versionDetailed:
		fmt.Fprintln(w, version.GetDetailedVersion())
	default:
		fmt.Fprintf(w, "siteforge %s\n", version.GetShortVersion())
	}
	return nil
}
