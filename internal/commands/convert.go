package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/stmtqbo/internal/accounts"
	"github.com/cleared-dev/stmtqbo/internal/model"
	"github.com/cleared-dev/stmtqbo/internal/ofx"
	"github.com/cleared-dev/stmtqbo/internal/pipeline"
	"github.com/cleared-dev/stmtqbo/internal/tablecsv"
)

func newConvertCommand(a *app) *cobra.Command {
	var output, accountType, accountNumber string

	cmd := &cobra.Command{
		Use:   "convert <tables.csv>",
		Short: "Convert a tables dump or plain CSV into a QBO ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = ledgerPath(args[0])
			}
			meta := map[string]string{
				accounts.MetaAccountType:   accountType,
				accounts.MetaAccountNumber: accountNumber,
			}
			n, err := runConvert(a, args[0], output, meta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d transactions)\n", output, n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "ledger path (default input name with .qbo)")
	cmd.Flags().StringVar(&accountType, "account-type", "bank", "account type: bank or credit-card")
	cmd.Flags().StringVar(&accountNumber, "account-number", "", "account number (default from config)")
	cmd.Flags().Int("year", 0, "year assumed for dates without one")
	cmd.Flags().String("precedence", "", "amount used when a row has both debit and credit: debit or credit")

	return cmd
}

// ledgerPath derives "x.qbo" from "x.tables.csv" or "x.csv".
func ledgerPath(input string) string {
	base := strings.TrimSuffix(input, accounts.TablesSuffix)
	if base == input {
		base = strings.TrimSuffix(input, ".csv")
	}
	return base + accounts.LedgerSuffix
}

func runConvert(a *app, input, output string, meta map[string]string) (int, error) {
	f, err := os.Open(input)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", input, err)
	}
	defer f.Close()

	txns, err := convertTables(a, f)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", input, err)
	}

	text, err := ofx.Render(ofx.Ledger{Account: accounts.Resolve(meta, a.cfg), Transactions: txns}, ofx.Options{})
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
		return 0, fmt.Errorf("writing ledger: %w", err)
	}
	return len(txns), nil
}

func convertTables(a *app, r io.Reader) ([]model.Transaction, error) {
	tables, err := tablecsv.Read(r)
	if err != nil {
		return nil, err
	}

	ex := pipeline.NewExtractor(a.cfg.Parsing, time.Now())
	var txns []model.Transaction
	for _, t := range tables {
		ex.OnSkip = func(row int, cells []string) {
			a.logger.Debug("skipped row", "table", t.Index, "row", row, "cells", cells)
		}
		found, stats := ex.Extract(t.Grid)
		a.logger.Info("extracted table", "table", t.Index, "page", t.Page, "rows", stats.Rows, "transactions", len(found),
			"header", headerLabel(stats.HeaderRow))
		txns = append(txns, found...)
	}
	return txns, nil
}

func headerLabel(row int) string {
	if row < 0 {
		return "none"
	}
	return strconv.Itoa(row + 1)
}
