package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carematch/carematch/internal/types"
	"github.com/carematch/carematch/pkg/window"
)

// confirmedOutput represents the filtered output of a job's confirmation window
type confirmedOutput struct {
	JobID       string            `json:"job_id"`
	State       string            `json:"state"`
	Remaining   string            `json:"remaining"`
	Freelancers []types.Candidate `json:"freelancers"`
}

// GetJobsCmd returns the jobs command
func GetJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Act on the confirmation window of a job",
	}
	jobsCmd.PersistentFlags().StringP(flagJobID, "j", "", "Job request ID")

	jobsCmd.AddCommand(confirmedCmd(), selectCmd(), declineCmd(), restartCmd(), confirmCmd())
	return jobsCmd
}

func confirmedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirmed",
		Short: "List the candidates who confirmed availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, err := requireFlag(cmd, flagJobID)
			if err != nil {
				return err
			}

			ctrl, err := window.NewController(window.Options{JobID: jobID, API: apiClient})
			if err != nil {
				return err
			}
			if err := ctrl.Fetch(cmd.Context()); err != nil {
				return fmt.Errorf("error fetching confirmed candidates: %w", err)
			}

			snap := ctrl.Snapshot()
			return printJSON(cmd, confirmedOutput{
				JobID:       snap.JobID,
				State:       snap.State.String(),
				Remaining:   snap.Countdown(),
				Freelancers: snap.Candidates,
			})
		},
	}
}

func selectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select a candidate and open a conversation with them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, err := requireFlag(cmd, flagJobID)
			if err != nil {
				return err
			}
			freelancerID, err := requireFlag(cmd, flagFreelancerID)
			if err != nil {
				return err
			}

			resp, err := apiClient.SelectFreelancer(cmd.Context(), jobID, freelancerID)
			if err != nil {
				return fmt.Errorf("error selecting freelancer: %w", err)
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringP(flagFreelancerID, "f", "", "Freelancer profile ID")
	return cmd
}

func declineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decline",
		Short: "Decline a candidate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, err := requireFlag(cmd, flagJobID)
			if err != nil {
				return err
			}
			freelancerID, err := requireFlag(cmd, flagFreelancerID)
			if err != nil {
				return err
			}

			if err := apiClient.DeclineFreelancer(cmd.Context(), jobID, freelancerID); err != nil {
				return fmt.Errorf("error declining freelancer: %w", err)
			}
			return printJSON(cmd, map[string]string{"declined": freelancerID})
		},
	}
	cmd.Flags().StringP(flagFreelancerID, "f", "", "Freelancer profile ID")
	return cmd
}

func restartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Start a new notification round",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, err := requireFlag(cmd, flagJobID)
			if err != nil {
				return err
			}

			resp, err := apiClient.RestartSearch(cmd.Context(), jobID)
			if err != nil {
				return fmt.Errorf("error restarting search: %w", err)
			}
			return printJSON(cmd, resp)
		},
	}
}

func confirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm your availability for a job (freelancers)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, err := requireFlag(cmd, flagJobID)
			if err != nil {
				return err
			}

			var req types.ConfirmRequest
			if cmd.Flags().Changed("note") {
				note, _ := cmd.Flags().GetString("note")
				req.Note = &note
			}
			req.IsOpenJobAccepted, _ = cmd.Flags().GetBool("open-job")
			if err := req.Validate(); err != nil {
				return err
			}

			if err := apiClient.ConfirmJob(cmd.Context(), jobID, req); err != nil {
				return fmt.Errorf("error confirming job: %w", err)
			}
			return printJSON(cmd, map[string]string{"confirmed": jobID})
		},
	}
	cmd.Flags().StringP("note", "n", "", "Note for the client")
	cmd.Flags().Bool("open-job", false, "Accept the job as an open posting")
	return cmd
}
