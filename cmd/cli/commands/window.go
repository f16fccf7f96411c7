package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/carematch/carematch/pkg/window"
)

// GetWindowCmd returns the window command
func GetWindowCmd() *cobra.Command {
	windowCmd := &cobra.Command{
		Use:   "window",
		Short: "Follow the confirmation window of a job",
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the candidates and the countdown live until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, err := requireFlag(cmd, flagJobID)
			if err != nil {
				return err
			}
			exitOnEnd, _ := cmd.Flags().GetBool("exit-on-end")

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			ctrl, err := window.NewController(window.Options{
				JobID: jobID,
				API:   apiClient,
				OnChange: func(s window.Snapshot) {
					mu.Lock()
					defer mu.Unlock()
					renderSnapshot(out, s)
					if exitOnEnd && s.State == window.Ended {
						cancel()
					}
				},
			})
			if err != nil {
				return err
			}

			if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	watchCmd.Flags().StringP(flagJobID, "j", "", "Job request ID")
	watchCmd.Flags().Bool("exit-on-end", false, "Stop once the window has ended")

	windowCmd.AddCommand(watchCmd)
	return windowCmd
}

func renderSnapshot(w io.Writer, s window.Snapshot) {
	fmt.Fprintf(w, "[%s] %s  %d candidate(s)\n", s.State, s.Countdown(), len(s.Candidates))
	for _, c := range s.Candidates {
		marker := " "
		if c.IsOpenJobAccepted {
			marker = "*"
		}
		fmt.Fprintf(w, "  %s %s  %s\n", marker, c.FreelancerID, c.FullName)
	}
}
