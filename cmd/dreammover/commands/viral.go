package commands

import (
	"github.com/spf13/cobra"

	"dreammover/internal/viral"
)

func viralCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viral",
		Short: "Social shares for completed rites",
	}

	var rite, platform string
	share := &cobra.Command{
		Use:   "share",
		Short: "Generate and record a share",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc.ShareRite(cmd.Context(), rite, platform)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}
	share.Flags().StringVar(&rite, "rite", "", "rite id")
	share.Flags().StringVar(&platform, "platform", viral.DefaultPlatform, "target platform")
	share.Flags().Uint64Var(&a.viralSeed, "seed", 0, "seed the viral score for reproducible output")
	_ = share.MarkFlagRequired("rite")

	cmd.AddCommand(share)
	return cmd
}
