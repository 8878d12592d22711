package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"flatshare/internal/core"
	"flatshare/internal/export"
	"flatshare/internal/storage"
)

type balancesCmd struct {
	month string
	raw   bool
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "display who owes whom" }
func (*balancesCmd) Usage() string {
	return `flatshare-cli balances [-m <YYYY-MM>] [-raw]

  Folds the ledger into per-member balances and lists the open debts.
  With -m only the expenses of that month are counted.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "m", "", "Only count expenses of this month (YYYY-MM)")
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal styling")
}

func (c *balancesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	h := loadHousehold()
	filter, err := h.monthFilter(c.month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	expenses, err := h.expenses(ctx)
	if err != nil {
		return fail("%v", err)
	}
	sheet, err := core.ComputeBalances(filter.Apply(expenses), h.roster)
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(export.BalancesMarkdown(sheet, h.roster, h.currency()), c.raw)
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	daily bool
	month string
	raw   bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display spending totals per month or per day" }
func (*summaryCmd) Usage() string {
	return `flatshare-cli summary [-daily] [-m <YYYY-MM>] [-raw]

  Without -daily, lists monthly totals newest first. With -daily, lists
  the days of one month, the current one unless -m is given.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.daily, "daily", false, "Per-day totals of one month")
	f.StringVar(&c.month, "m", "", "Month for -daily (YYYY-MM, defaults to the current month)")
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal styling")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	h := loadHousehold()
	expenses, err := h.expenses(ctx)
	if err != nil {
		return fail("%v", err)
	}

	if !c.daily {
		periods := core.Periods(core.GroupByMonthIn(expenses, h.loc), true)
		printMarkdown(export.PeriodsMarkdown("Monthly spending", periods, h.currency()), c.raw)
		return subcommands.ExitSuccess
	}

	month := c.month
	if month == "" {
		month = time.Now().In(h.loc).Format(core.MonthLayout)
	}
	periods, err := core.DailyInMonth(expenses, month, h.loc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "month must be YYYY-MM: %v\n", err)
		return subcommands.ExitUsageError
	}
	printMarkdown(export.PeriodsMarkdown("Daily spending, "+month, periods, h.currency()), c.raw)
	return subcommands.ExitSuccess
}

type exportCmd struct {
	month string
	out   string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the ledger as CSV" }
func (*exportCmd) Usage() string {
	return `flatshare-cli export [-m <YYYY-MM>] [-o <file>]

  Writes expenses as CSV, to stdout unless -o is given. Use -o auto for a
  dated file name in the current directory.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "m", "", "Only export this month (YYYY-MM)")
	f.StringVar(&c.out, "o", "", "Output file, or auto")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	h := loadHousehold()
	filter, err := h.monthFilter(c.month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	expenses, err := h.expenses(ctx)
	if err != nil {
		return fail("%v", err)
	}

	w := stdout
	if c.out != "" {
		name := c.out
		if name == "auto" {
			name = export.Filename(time.Now().In(h.loc))
		}
		file, err := os.Create(name)
		if err != nil {
			return fail("%v", err)
		}
		defer file.Close()
		w = file
		defer fmt.Fprintf(os.Stderr, "Wrote %s\n", name)
	}
	if err := export.WriteCSV(w, filter.Apply(expenses), h.roster, h.loc); err != nil {
		return fail("%v", err)
	}
	return subcommands.ExitSuccess
}

type migrateCmd struct {
	version bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply database migrations" }
func (*migrateCmd) Usage() string {
	return `flatshare-cli migrate [-version]

  Applies pending schema migrations to the configured SQLite or Postgres
  database. With -version, only reports the applied version.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.version, "version", false, "Report the schema version and exit")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	h := loadHousehold()

	var dialect storage.Dialect
	var dsn string
	switch h.cfg.DataBackend {
	case "sqlite":
		dialect, dsn = storage.SQLite, h.cfg.SQLiteDBPath
	case "postgres":
		dialect, dsn = storage.Postgres, h.cfg.PostgresDSN
	default:
		fmt.Fprintf(os.Stderr, "backend %q has no schema\n", h.cfg.DataBackend)
		return subcommands.ExitUsageError
	}

	if !c.version {
		if err := storage.RunMigrations(dialect, dsn); err != nil {
			return fail("%v", err)
		}
	}
	v, dirty, err := storage.MigrationVersion(dialect, dsn)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Fprintf(stdout, "%s schema version %d", dialect, v)
	if dirty {
		fmt.Fprint(stdout, " (dirty)")
	}
	fmt.Fprintln(stdout)
	return subcommands.ExitSuccess
}
