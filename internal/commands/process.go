package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/stmtqbo/internal/accounts"
	"github.com/cleared-dev/stmtqbo/internal/analysis"
	"github.com/cleared-dev/stmtqbo/internal/gitops"
	"github.com/cleared-dev/stmtqbo/internal/importer"
	"github.com/cleared-dev/stmtqbo/internal/metrics"
	"github.com/cleared-dev/stmtqbo/internal/pipeline"
	"github.com/cleared-dev/stmtqbo/internal/runlog"
	"github.com/cleared-dev/stmtqbo/internal/store"
)

type processOptions struct {
	projectDir    string
	jobsDir       string
	storeDir      string
	source        string
	accountType   string
	accountNumber string
	keep          bool
	printMetrics  bool
}

func newProcessCommand(a *app) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process [job-id...]",
		Short: "Process analysis jobs into tables dumps and ledgers",
		Long: "Process the named jobs, or with no arguments every job waiting in import/.\n" +
			"Inbox jobs are moved to import/processed/ once their outputs are written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(opts.projectDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			opts.projectDir = absDir
			return runProcess(cmd.Context(), a, cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.projectDir, "dir", ".", "project directory")
	cmd.Flags().StringVar(&opts.jobsDir, "jobs", "", "directory of job page files (default <dir>/import)")
	cmd.Flags().StringVar(&opts.storeDir, "store", "", "object store root (default <dir>)")
	cmd.Flags().StringVar(&opts.source, "source", "", "store key of the analysed document")
	cmd.Flags().StringVar(&opts.accountType, "account-type", "", "override account type: bank or credit-card")
	cmd.Flags().StringVar(&opts.accountNumber, "account-number", "", "override account number")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "leave inbox jobs in import/")
	cmd.Flags().BoolVar(&opts.printMetrics, "metrics", false, "print metrics in Prometheus text format when done")
	cmd.Flags().String("prefix", "", "output key prefix")
	cmd.Flags().Int("year", 0, "year assumed for dates without one")
	cmd.Flags().String("precedence", "", "amount used when a row has both debit and credit: debit or credit")

	return cmd
}

func runProcess(ctx context.Context, a *app, out io.Writer, opts processOptions, jobIDs []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	jobsDir := opts.jobsDir
	if jobsDir == "" {
		jobsDir = importer.Dir(opts.projectDir)
	}
	storeDir := opts.storeDir
	if storeDir == "" {
		storeDir = opts.projectDir
	}

	var jobs []importer.Job
	fromInbox := len(jobIDs) == 0
	if fromInbox {
		scanned, err := importer.Scan(opts.projectDir)
		if err != nil {
			return err
		}
		jobs = scanned
		jobsDir = importer.Dir(opts.projectDir)
	} else {
		for _, id := range jobIDs {
			jobs = append(jobs, importer.Job{ID: id, Path: filepath.Join(jobsDir, id)})
		}
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs to process")
		return nil
	}

	m := metrics.New()
	proc := pipeline.New(analysis.NewDir(jobsDir), store.NewFS(storeDir), a.cfg, a.logger, m)

	var failed, written int
	for _, job := range jobs {
		req := pipeline.Request{
			JobID:     job.ID,
			SourceKey: firstNonEmpty(opts.source, job.Descriptor.SourceKey),
			Metadata: map[string]string{
				accounts.MetaAccountType:   firstNonEmpty(opts.accountType, job.Descriptor.AccountType),
				accounts.MetaAccountNumber: firstNonEmpty(opts.accountNumber, job.Descriptor.AccountNumber),
				accounts.MetaOriginalName:  job.Descriptor.OriginalName,
			},
		}

		res, err := proc.Run(ctx, req)
		entry := runlog.Entry{
			Timestamp:    time.Now(),
			JobID:        job.ID,
			Source:       res.SourceKey,
			AccountType:  string(res.Account.Type),
			Tables:       res.Tables,
			Transactions: len(res.Transactions),
			TablesKey:    res.TablesKey,
			LedgerKey:    res.LedgerKey,
		}
		switch {
		case err != nil:
			failed++
			entry.Status = metrics.StatusError
			entry.Error = err.Error()
			a.logger.Error("job failed", "job", job.ID, "err", err)
			fmt.Fprintf(out, "%s: failed: %v\n", job.ID, err)
		case res.LedgerErr != nil:
			entry.Status = metrics.StatusPartial
			entry.Error = res.LedgerErr.Error()
			fmt.Fprintf(out, "%s: %d tables, %d transactions, tables at %s, ledger not written: %v\n",
				job.ID, res.Tables, len(res.Transactions), res.TablesKey, res.LedgerErr)
		default:
			written += len(res.Transactions)
			entry.Status = metrics.StatusOK
			fmt.Fprintf(out, "%s: %d tables, %d transactions -> %s\n", job.ID, res.Tables, len(res.Transactions), res.LedgerKey)
		}

		if err := runlog.Append(opts.projectDir, []runlog.Entry{entry}); err != nil {
			return fmt.Errorf("writing run log: %w", err)
		}
		if err == nil && fromInbox && !opts.keep {
			if err := importer.MarkProcessed(opts.projectDir, job.ID); err != nil {
				return err
			}
		}
	}

	if a.cfg.Git.AutoCommit && gitops.IsRepo(opts.projectDir) {
		author := gitops.Author{Name: a.cfg.Git.AuthorName, Email: a.cfg.Git.AuthorEmail}
		msg := fmt.Sprintf("process: %d jobs, %d transactions", len(jobs)-failed, written)
		hash, err := gitops.Commit(opts.projectDir, msg, author)
		if err != nil {
			return err
		}
		if hash != "" {
			fmt.Fprintf(out, "Committed %s\n", hash)
		}
	}

	if opts.printMetrics {
		if err := m.WriteText(out); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
