package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the transaction journal",
	Long: `Query and display journaled transactions from a SQLite database.

Subcommands:
  tx    - Show a single transaction by ID
  today - List transactions recorded today
  day   - List transactions recorded on a specific day

Examples:
  tradesim journal tx 01HZX3...
  tradesim journal today
  tradesim journal day 2024-01-15`,
}

var journalTxCmd = &cobra.Command{
	Use:   "tx <tx-id>",
	Short: "Show a single transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTx,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List transactions recorded today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listJournalDay(cmd, time.Now().In(time.Local).Format("2006-01-02"))
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List transactions recorded on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listJournalDay(cmd, args[0])
	},
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTxCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (defaults to journal.db_path)")
}

func openJournalDB() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		path = cfg.Journal.DBPath
	}
	if path == "" {
		path = "./tradesim.sqlite"
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTx(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTransaction(args[0])
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTransactionOrg(rec))
	return nil
}

func listJournalDay(cmd *cobra.Command, day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTransactionsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}
	if len(recs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No transactions on %s\n", day)
		return nil
	}

	total, err := j.RealizedTotal(start, end)
	if err != nil {
		return fmt.Errorf("realized total: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, journal.FormatTransactionsOrg(recs))
	fmt.Fprintf(out, "Realized P&L: %s\n", total.StringFixed(2))
	return nil
}

// dayBounds returns [start, end) for a YYYY-MM-DD day in loc.
func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return d, d.AddDate(0, 0, 1), nil
}
