package commands

import (
	"github.com/spf13/cobra"
)

func marketplaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marketplace",
		Short: "Certified plan marketplace",
	}
	cmd.AddCommand(marketplaceUploadCmd(a), marketplaceListCmd(a))
	return cmd
}

func marketplaceUploadCmd(a *app) *cobra.Command {
	var (
		plan  string
		user  string
		price float64
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Vet a plan and list it for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := a.svc.UploadPlan(cmd.Context(), plan, user, price)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), listing)
		},
	}
	cmd.Flags().StringVar(&plan, "plan", "", "plan file path")
	cmd.Flags().StringVar(&user, "user", "", "seller user id")
	cmd.Flags().Float64Var(&price, "price", 0, "price in USD (minimum 5)")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func marketplaceListCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List marketplace listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			listings, _ := a.svc.Listings(cmd.Context(), user)
			return writeJSON(cmd.OutOrStdout(), listings)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only listings by this user")
	return cmd
}
