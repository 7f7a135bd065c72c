package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "", "Filter by status (CREATED/ASSIGNED/PAID/CANCELLED)")
	tasksCmd.Flags().StringVar(&tasksQuery, "query", "", "Free-text search over title and description")
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(showCmd)
}

var (
	tasksStatus string
	tasksQuery  string
)

type taskListing struct {
	TaskID     int64  `json:"task_id"`
	Poster     string `json:"poster"`
	Freelancer string `json:"freelancer"`
	Reward     int64  `json:"reward"`
	Status     string `json:"status"`
	Title      string `json:"title"`
}

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"ls"},
	Short:   "List tasks from the marketplace mirror",
	RunE:    runTasks,
}

func runTasks(cmd *cobra.Command, args []string) error {
	path := "/api/tasks?status=" + tasksStatus
	if tasksQuery != "" {
		path += "&q=" + tasksQuery
	}

	var listings []taskListing
	if err := apiDo("GET", path, "", nil, &listings); err != nil {
		return err
	}

	if len(listings) == 0 {
		fmt.Println("No tasks found. Run 'taskbay post' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tREWARD\tPOSTER\tFREELANCER\tTITLE")
	for _, l := range listings {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			l.TaskID, l.Status, l.Reward, l.Poster, l.Freelancer, l.Title)
	}
	return w.Flush()
}

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task from ledger ground truth",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	var task struct {
		ID          int64     `json:"id"`
		Poster      string    `json:"poster"`
		Freelancer  string    `json:"freelancer"`
		Reward      int64     `json:"reward"`
		Status      string    `json:"status"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
	}
	if err := apiDo("GET", fmt.Sprintf("/api/tasks/%d", id), "", nil, &task); err != nil {
		return err
	}

	fmt.Printf("Task %d: %s\n", task.ID, task.Title)
	fmt.Printf("  Status:      %s\n", task.Status)
	fmt.Printf("  Reward:      %d\n", task.Reward)
	fmt.Printf("  Poster:      %s\n", task.Poster)
	if task.Freelancer != "" {
		fmt.Printf("  Freelancer:  %s\n", task.Freelancer)
	}
	fmt.Printf("  Posted:      %s\n", task.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  Description: %s\n", task.Description)
	return nil
}
