package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/stmtqbo/internal/fitid"
	"github.com/cleared-dev/stmtqbo/internal/ofx"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.qbo>",
		Short: "Show the transactions in a QBO ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			st, err := ofx.ParseStatement(string(data))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			printStatement(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printStatement(w io.Writer, st ofx.Statement) {
	fmt.Fprintf(w, "Account:  %s (%s)\n", st.AccountID, st.AccountType)
	fmt.Fprintf(w, "Period:   %s to %s\n", st.Start.Format("2006-01-02"), st.End.Format("2006-01-02"))
	fmt.Fprintf(w, "Balance:  %s\n", st.Balance.StringFixed(2))
	fmt.Fprintf(w, "Entries:  %d\n", len(st.Entries))
	for _, e := range st.Entries {
		// * marks ids this tool would not have generated
		mark := ""
		if !fitid.IsFingerprint(e.FITID) {
			mark = " *"
		}
		fmt.Fprintf(w, "  %s  %-6s %12s  %-32s  %s%s\n",
			e.Posted.Format("2006-01-02"), e.Type, e.Amount.StringFixed(2), e.Name, e.FITID, mark)
	}
}
