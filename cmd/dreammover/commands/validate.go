package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func validatePlansCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "validate-plans",
		Short: "Check every plan in a directory against the plan schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.svc.ValidatePlans(cmd.Context(), dir)
			if err != nil {
				return err
			}
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			if len(results) == 0 {
				fmt.Fprintln(out, "No plan files found.")
				return nil
			}
			invalid := 0
			for _, res := range results {
				if res.OK {
					fmt.Fprintf(out, "OK: %s\n", res.SourceFile)
					continue
				}
				invalid++
				fmt.Fprintf(errOut, "Invalid plan: %s\n", res.SourceFile)
				for _, msg := range res.Errors {
					fmt.Fprintf(errOut, "- %s\n", msg)
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d invalid plans: %w", invalid, errReported)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "vauntico-dream-mover/plans", "directory of .yml/.yaml plans")
	return cmd
}
