package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func vetCmd(a *app) *cobra.Command {
	var dir, report string
	cmd := &cobra.Command{
		Use:   "vet",
		Short: "Vet every plan in a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := a.svc.VetDirectory(cmd.Context(), dir, report)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintln(out, "Marketplace: All plans certified")
				return nil
			}
			fmt.Fprintln(out, "Marketplace vet issues:")
			for _, issue := range issues {
				fmt.Fprintf(out, "- %s: %s — %s\n", issue.SourceFile, issue.RuleName, issue.Message)
			}
			return fmt.Errorf("%d vet issues: %w", len(issues), errReported)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "vauntico-dream-mover/plans", "directory of .yml/.yaml plans")
	cmd.Flags().StringVar(&report, "report", "", "write a JSON report to this path")
	return cmd
}
