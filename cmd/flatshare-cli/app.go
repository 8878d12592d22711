package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"flatshare/internal/backend"
	"flatshare/internal/cli"
	"flatshare/internal/config"
	"flatshare/internal/core"
	applog "flatshare/internal/log"
)

// Commands lists every subcommand of the tool.
var Commands = []subcommands.Command{
	&balancesCmd{},
	&summaryCmd{},
	&exportCmd{},
	&migrateCmd{},
}

// stdout receives reports; logs and errors go to stderr.
var stdout io.Writer = os.Stdout

// openBackend connects to the configured ledger. Tests swap it for a
// seeded store.
var openBackend = func(ctx context.Context, cfg *config.Config) (backend.Backend, backend.CleanupFunc, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(nil).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Backend, res.Cleanup, nil
}

// household is what every report command needs.
type household struct {
	cfg    *config.Config
	roster core.Roster
	loc    *time.Location
}

func loadHousehold() household {
	cfg, _ := cli.LoadConfig(applog.ComponentCLI)
	// Reports go to stdout; keep logs out of the way.
	logger := cli.SetupLoggerTo(os.Stderr, cfg.SlogLevel(), applog.ComponentCLI)
	cli.MustValidate(logger.Logger, cfg)
	roster, loc := cli.Household(logger.Logger, cfg)
	return household{cfg: cfg, roster: roster, loc: loc}
}

// expenses reads the whole ledger, newest first.
func (h household) expenses(ctx context.Context) ([]core.Expense, error) {
	b, cleanup, err := openBackend(ctx, h.cfg)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return b.ListExpenses(ctx)
}

// monthFilter narrows to one "YYYY-MM" month; empty means everything.
func (h household) monthFilter(month string) (core.Filter, error) {
	if month == "" {
		return core.Filter{}, nil
	}
	from, to, err := core.MonthRange(month, h.loc)
	if err != nil {
		return core.Filter{}, fmt.Errorf("month must be YYYY-MM: %w", err)
	}
	return core.Filter{From: from, To: to}, nil
}

func (h household) currency() string {
	return strings.ToUpper(h.cfg.Currency)
}

// printMarkdown renders md for the terminal, or prints it as is when raw
// is set or rendering fails.
func printMarkdown(md string, raw bool) {
	if raw {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
