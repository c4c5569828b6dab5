package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"dreammover/pkg/domain"
)

func tierCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tier",
		Short: "Tier profile and ritual quota",
	}
	check := &cobra.Command{
		Use:   "check",
		Short: "Print the current profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, _ := a.svc.CheckTier(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), profile)
		},
	}
	record := &cobra.Command{
		Use:   "record",
		Short: "Count one ritual against today's quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := a.svc.RecordRitual(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), decision.Profile); err != nil {
				return err
			}
			return decision.Err()
		},
	}
	upgrade := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade to Practitioner",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.svc.UpgradeTier(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), profile)
		},
	}
	var level string
	require := &cobra.Command{
		Use:   "require",
		Short: "Exit non-zero unless the profile is at least --level",
		RunE: func(cmd *cobra.Command, args []string) error {
			want := domain.Level(level)
			if !want.IsValid() {
				return fmt.Errorf("unknown tier level %q", level)
			}
			if err := a.svc.RequireTier(cmd.Context(), want); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tier gate: %s satisfied\n", want)
			return nil
		},
	}
	require.Flags().StringVar(&level, "level", string(domain.LevelPractitioner), "minimum level (Seeker|Practitioner)")
	cmd.AddCommand(check, record, upgrade, require)
	return cmd
}
