package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carematch/carematch/internal/types"
)

// GetCountersCmd returns the counters command
func GetCountersCmd() *cobra.Command {
	countersCmd := &cobra.Command{
		Use:   "counters",
		Short: "Show the badge counters of the current user",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print the counters once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			counts, err := apiClient.GetCounters(cmd.Context())
			if err != nil {
				return fmt.Errorf("error fetching counters: %w", err)
			}
			return printJSON(cmd, counts)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the counters every time they change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := apiClient.WatchCounters(cmd.Context(), func(c types.Counts) {
				fmt.Fprintf(cmd.OutOrStdout(), "unread=%d pending=%d schedule=%d\n",
					c.UnreadMessages, c.PendingConfirmations, c.ScheduleChanges)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("error watching counters: %w", err)
			}
			return nil
		},
	}

	countersCmd.AddCommand(getCmd, watchCmd)
	return countersCmd
}
