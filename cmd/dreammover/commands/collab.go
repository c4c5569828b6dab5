package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"dreammover/internal/collab"
	"dreammover/pkg/domain"
)

func collabCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collab",
		Short: "Team share approvals",
	}

	var plan, team string
	var required int
	share := &cobra.Command{
		Use:   "share",
		Short: "Open a share request needing a quorum of approvals",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := a.svc.ShareLib(cmd.Context(), plan, team, required)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), req)
		},
	}
	share.Flags().StringVar(&plan, "plan", "", "plan id")
	share.Flags().StringVar(&team, "team", "", "team id")
	share.Flags().IntVar(&required, "required", collab.DefaultRequiredApprovals, "approvals needed")
	_ = share.MarkFlagRequired("plan")
	_ = share.MarkFlagRequired("team")

	vote := &cobra.Command{
		Use:   "vote",
		Short: "Approve an open share request",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, found, err := a.svc.VoteShare(cmd.Context(), plan, team)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("share request %s/%s: %w", plan, team, domain.ErrNotFound)
			}
			return writeJSON(cmd.OutOrStdout(), req)
		},
	}
	vote.Flags().StringVar(&plan, "plan", "", "plan id")
	vote.Flags().StringVar(&team, "team", "", "team id")
	_ = vote.MarkFlagRequired("plan")
	_ = vote.MarkFlagRequired("team")

	list := &cobra.Command{
		Use:   "list",
		Short: "List share requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, _ := a.svc.ApprovalRequests(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), reqs)
		},
	}

	cmd.AddCommand(share, vote, list)
	return cmd
}
