package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	postCmd.Flags().StringVar(&postFrom, "from", "", "Poster wallet address (required)")
	postCmd.Flags().StringVar(&postTitle, "title", "", "Task title (required)")
	postCmd.Flags().StringVar(&postDesc, "desc", "", "Task description (required)")
	postCmd.Flags().Int64Var(&postReward, "reward", 0, "Reward to lock into escrow (required)")
	postCmd.MarkFlagRequired("from")
	postCmd.MarkFlagRequired("title")
	postCmd.MarkFlagRequired("desc")
	postCmd.MarkFlagRequired("reward")
	rootCmd.AddCommand(postCmd)
}

var (
	postFrom   string
	postTitle  string
	postDesc   string
	postReward int64
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post a task and lock its reward into escrow",
	RunE:  runPost,
}

func runPost(cmd *cobra.Command, args []string) error {
	body := map[string]interface{}{
		"title":       postTitle,
		"description": postDesc,
		"reward":      postReward,
	}
	var resp struct {
		TaskID int64 `json:"task_id"`
	}
	if err := apiDo("POST", "/api/tasks", postFrom, body, &resp); err != nil {
		return err
	}

	fmt.Printf("Posted task %d (reward %d locked in escrow)\n", resp.TaskID, postReward)
	return nil
}
