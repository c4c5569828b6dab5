package commands

import (
	"github.com/spf13/cobra"
)

func feedbackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Post-rite satisfaction scores",
	}

	var (
		rite  string
		score int
	)
	survey := &cobra.Command{
		Use:   "survey",
		Short: "Record a 0-10 score and print the updated summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.svc.PostSurvey(cmd.Context(), rite, score)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), sum)
		},
	}
	survey.Flags().StringVar(&rite, "rite", "", "rite id")
	survey.Flags().IntVar(&score, "score", 0, "score from 0 to 10")
	_ = survey.MarkFlagRequired("rite")
	_ = survey.MarkFlagRequired("score")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print the stored summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, _ := a.svc.FeedbackSummary(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), sum)
		},
	}

	cmd.AddCommand(survey, summary)
	return cmd
}
