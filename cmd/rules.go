package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/siteforge/internal/build"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the resolved rule set without writing anything",
	Long: `Rules compiles the configuration, expands every selector against the
current tree and prints what a build would write: copies, omitted optional
sources, bundles with their expanded sources, pages, filters and watch
targets. Collisions and missing required sources fail here exactly as they
would fail a build.

Examples:
  siteforge rules
  siteforge rules --format yaml`,
	RunE: runRules,
}

var rulesFormat = newFormatValue(FormatTable, FormatTable, FormatYAML, FormatJSON)

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().VarP(rulesFormat, "format", "f", "Output format (table, yaml, json)")
}

func runRules(cmd *cobra.Command, args []string) error {
	_, site, err := loadSite(cmd.Context(), newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	plan, err := site.Plan()
	if err != nil {
		return err
	}

	if rulesFormat.String() == FormatTable {
		return writePlanTable(cmd.OutOrStdout(), plan)
	}
	return writeStructured(cmd.OutOrStdout(), rulesFormat.String(), plan)
}

func writePlanTable(w io.Writer, plan *build.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "KIND\tSOURCE\tDESTINATION")
	for _, c := range plan.Copies {
		fmt.Fprintf(tw, "copy\t%s\t%s\n", c.Source, c.Destination)
	}
	for _, o := range plan.Omitted {
		fmt.Fprintf(tw, "omitted\t%s\t%s\n", o.Source, o.Destination)
	}
	for _, b := range plan.Bundles {
		fmt.Fprintf(tw, "bundle %s\t%s\t%s\n", b.ID, strings.Join(b.Sources, ","), b.Output)
	}
	for _, p := range plan.Pages {
		fmt.Fprintf(tw, "page\t%s\t%s\n", p.Source, p.Output)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nFilters: %s\n", strings.Join(plan.Filters, ", "))
	fmt.Fprintf(w, "Watch:   %s\n", strings.Join(plan.Watch, ", "))
	return nil
}
