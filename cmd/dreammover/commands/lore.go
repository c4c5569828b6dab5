package commands

import (
	"github.com/spf13/cobra"

	"dreammover/internal/lore"
)

func loreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lore",
		Short: "Personal rite history and rollback chains",
	}

	var rite, user, only string
	record := &cobra.Command{
		Use:   "record",
		Short: "Add a rite to the personal history",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.svc.RecordLore(cmd.Context(), rite, user)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), g)
		},
	}
	record.Flags().StringVar(&rite, "rite", "", "rite id (e.g. sim, migrate)")
	record.Flags().StringVar(&user, "user", lore.DefaultUser, "user id or email")
	_ = record.MarkFlagRequired("rite")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the personal history",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, _ := a.svc.LoreHistory(cmd.Context(), only)
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	list.Flags().StringVar(&only, "user", "", "only entries for this user")

	chain := &cobra.Command{
		Use:   "chain",
		Short: "Print the rollback chain for a rite as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := lore.ChainYAML(lore.Chain(rite))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	chain.Flags().StringVar(&rite, "rite", "", "rite id")
	_ = chain.MarkFlagRequired("rite")

	cmd.AddCommand(record, list, chain)
	return cmd
}
