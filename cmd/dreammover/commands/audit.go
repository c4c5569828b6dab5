package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

func auditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Consent and controls ledger",
	}

	var (
		rite     string
		controls []string
		consent  bool
	)
	record := &cobra.Command{
		Use:   "record",
		Short: "Append an audit record for a rite",
		RunE: func(cmd *cobra.Command, args []string) error {
			var selected []string
			if cmd.Flags().Changed("control") {
				selected = trimControls(controls)
			}
			rec, err := a.svc.RecordAudit(cmd.Context(), rite, selected, consent)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	record.Flags().StringVar(&rite, "rite", "", "rite id")
	record.Flags().StringSliceVar(&controls, "control", nil, "control name (repeatable; default encryption,retention)")
	record.Flags().BoolVar(&consent, "consent", false, "consent was given")
	_ = record.MarkFlagRequired("rite")

	list := &cobra.Command{
		Use:   "list",
		Short: "List audit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, _ := a.svc.AuditEntries(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}

	cmd.AddCommand(record, list)
	return cmd
}

// trimControls drops surrounding whitespace and empty names, so
// `--control "a, b,"` records [a b].
func trimControls(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
