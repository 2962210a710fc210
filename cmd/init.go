package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/siteforge/internal/scaffolding"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Aliases: []string{"i"},
	Short:   "Write a starter project into the current directory",
	Long: `Init writes .siteforge.yml and a small source tree: a layout, one page,
site data, a stylesheet and a script. The result builds with siteforge build
as is. Existing files are never overwritten unless --force is given.

Examples:
  siteforge init
  siteforge init --title "Field Notes" --input site`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initOptions scaffolding.Options

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initOptions.Title, "title", "My Site", "Site title written to the data directory")
	initCmd.Flags().StringVar(&initOptions.Input, "input", "src", "Source directory to create")
	initCmd.Flags().BoolVar(&initOptions.Force, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	fs, err := projectFS()
	if err != nil {
		return err
	}

	written, err := scaffolding.NewGenerator(fs).Generate(initOptions)
	if err != nil {
		return err
	}

	for _, name := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
	}
	return nil
}
