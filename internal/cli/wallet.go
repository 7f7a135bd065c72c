package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	walletCmd.AddCommand(walletBalanceCmd)
	walletCmd.AddCommand(walletDepositCmd)
	walletCmd.AddCommand(walletHistoryCmd)
	rootCmd.AddCommand(walletCmd)
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Inspect and fund wallet accounts",
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show an account's current balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Address string `json:"address"`
			Balance int64  `json:"balance"`
		}
		if err := apiDo("GET", "/api/wallet/"+args[0], "", nil, &resp); err != nil {
			return err
		}
		fmt.Printf("%s: %d\n", resp.Address, resp.Balance)
		return nil
	},
}

var walletDepositCmd = &cobra.Command{
	Use:   "deposit <address> <amount>",
	Short: "Fund a wallet account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || amount <= 0 {
			return fmt.Errorf("invalid amount %q", args[1])
		}

		var resp struct {
			Address string `json:"address"`
			Balance int64  `json:"balance"`
		}
		body := map[string]int64{"amount": amount}
		if err := apiDo("POST", "/api/wallet/"+args[0]+"/deposit", "", body, &resp); err != nil {
			return err
		}
		fmt.Printf("Deposited %d, %s now holds %d\n", amount, resp.Address, resp.Balance)
		return nil
	},
}

var walletHistoryCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Show recent ledger entries for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var entries []struct {
			Timestamp time.Time `json:"timestamp"`
			Type      string    `json:"type"`
			EntryType string    `json:"entry_type"`
			Amount    int64     `json:"amount"`
			TaskRef   string    `json:"task_ref"`
			Balance   int64     `json:"balance"`
		}
		if err := apiDo("GET", "/api/wallet/"+args[0]+"/history", "", nil, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No ledger entries.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tTYPE\tSIDE\tAMOUNT\tTASK\tBALANCE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\n",
				e.Timestamp.Format("2006-01-02 15:04"),
				e.Type, e.EntryType, e.Amount, e.TaskRef, e.Balance)
		}
		return w.Flush()
	},
}
