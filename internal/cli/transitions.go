package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// The three lifecycle transitions share a shape: <id> plus --from.

func init() {
	assignCmd.Flags().StringVar(&assignFrom, "from", "", "Poster wallet address (required)")
	assignCmd.Flags().StringVar(&assignFreelancer, "freelancer", "", "Freelancer wallet address (required)")
	assignCmd.MarkFlagRequired("from")
	assignCmd.MarkFlagRequired("freelancer")
	rootCmd.AddCommand(assignCmd)

	completeCmd.Flags().StringVar(&completeFrom, "from", "", "Poster wallet address (required)")
	completeCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(completeCmd)

	cancelCmd.Flags().StringVar(&cancelFrom, "from", "", "Poster wallet address (required)")
	cancelCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(cancelCmd)
}

var (
	assignFrom       string
	assignFreelancer string
	completeFrom     string
	cancelFrom       string
)

var assignCmd = &cobra.Command{
	Use:   "assign <task-id>",
	Short: "Assign a freelancer to an open task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		body := map[string]string{"freelancer": assignFreelancer}
		if err := apiDo("POST", fmt.Sprintf("/api/tasks/%d/assign", id), assignFrom, body, nil); err != nil {
			return err
		}
		fmt.Printf("Task %d assigned to %s\n", id, assignFreelancer)
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Complete a task and release the reward to the freelancer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		if err := apiDo("POST", fmt.Sprintf("/api/tasks/%d/complete", id), completeFrom, nil, nil); err != nil {
			return err
		}
		fmt.Printf("Task %d completed, reward released\n", id)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a task and refund the reward to the poster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		if err := apiDo("POST", fmt.Sprintf("/api/tasks/%d/cancel", id), cancelFrom, nil, nil); err != nil {
			return err
		}
		fmt.Printf("Task %d cancelled, reward refunded\n", id)
		return nil
	},
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
