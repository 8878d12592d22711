package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"flatshare/internal/backend"
	"flatshare/internal/config"
	"flatshare/internal/core"
	"flatshare/internal/export"
	"flatshare/internal/memory"
)

func seeded() []core.Expense {
	return []core.Expense{
		{
			ID:          "rent",
			Description: "rent",
			Amount:      decimal.NewFromInt(100),
			PaidBy:      "sachin",
			Split:       core.EqualSplit{Participants: []core.UserID{"sachin", "sunny"}},
			Date:        time.Date(2025, 4, 3, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:          "pizza",
			Description: "pizza",
			Amount:      decimal.NewFromInt(20),
			PaidBy:      "sunny",
			Split:       core.FullPaymentSplit{Beneficiaries: []core.UserID{"sachin"}},
			Date:        time.Date(2025, 5, 9, 20, 0, 0, 0, time.UTC),
		},
	}
}

// setup points the commands at a seeded in-memory ledger and captures
// their output.
func setup(t *testing.T, backendType string) *bytes.Buffer {
	t.Helper()
	t.Setenv("DATA_BACKEND", backendType)
	t.Setenv("ROSTER", "sachin:Sachin,sunny:Sunny")
	t.Setenv("CURRENCY", "USD")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")

	origOpen, origOut := openBackend, stdout
	t.Cleanup(func() { openBackend, stdout = origOpen, origOut })

	store := memory.NewWithExpenses(seeded()...)
	openBackend = func(context.Context, *config.Config) (backend.Backend, backend.CleanupFunc, error) {
		return store, nil, nil
	}
	var buf bytes.Buffer
	stdout = &buf
	return &buf
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cmd.Execute(context.Background(), fs)
}

func TestBalancesCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    subcommands.ExitStatus
		has     []string
		hasNone []string
	}{
		{
			name: "whole ledger",
			args: []string{"-raw"},
			want: subcommands.ExitSuccess,
			has:  []string{"# Balances", "| Sachin |", "| Sunny |"},
		},
		{
			name:    "april only",
			args:    []string{"-raw", "-m", "2025-04"},
			want:    subcommands.ExitSuccess,
			has:     []string{"- Sunny owes Sachin"},
			hasNone: []string{"- Sachin owes Sunny"},
		},
		{
			name:    "may only",
			args:    []string{"-raw", "-m", "2025-05"},
			want:    subcommands.ExitSuccess,
			has:     []string{"- Sachin owes Sunny"},
			hasNone: []string{"- Sunny owes Sachin"},
		},
		{
			name: "empty month is settled",
			args: []string{"-raw", "-m", "2024-01"},
			want: subcommands.ExitSuccess,
			has:  []string{"Everyone is settled up."},
		},
		{
			name: "bad month",
			args: []string{"-m", "2025-13"},
			want: subcommands.ExitUsageError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := setup(t, "memory")
			if got := run(t, &balancesCmd{}, tt.args...); got != tt.want {
				t.Fatalf("status = %v, want %v; output:\n%s", got, tt.want, out)
			}
			for _, s := range tt.has {
				if !strings.Contains(out.String(), s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.hasNone {
				if strings.Contains(out.String(), s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestSummaryCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
		has  []string
	}{
		{"monthly", []string{"-raw"}, subcommands.ExitSuccess, []string{"# Monthly spending", "| 2025-04 | 1 |", "| 2025-05 | 1 |"}},
		{"daily of a month", []string{"-raw", "-daily", "-m", "2025-04"}, subcommands.ExitSuccess, []string{"# Daily spending, 2025-04", "| 2025-04-03 | 1 |"}},
		{"daily of an empty month", []string{"-raw", "-daily", "-m", "2024-02"}, subcommands.ExitSuccess, []string{"No expenses."}},
		{"daily bad month", []string{"-daily", "-m", "April"}, subcommands.ExitUsageError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := setup(t, "memory")
			if got := run(t, &summaryCmd{}, tt.args...); got != tt.want {
				t.Fatalf("status = %v, want %v", got, tt.want)
			}
			for _, s := range tt.has {
				if !strings.Contains(out.String(), s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestExportCmd(t *testing.T) {
	t.Run("stdout with month", func(t *testing.T) {
		out := setup(t, "memory")
		if got := run(t, &exportCmd{}, "-m", "2025-05"); got != subcommands.ExitSuccess {
			t.Fatalf("status = %v", got)
		}
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("lines = %d, want header plus one row:\n%s", len(lines), out)
		}
		if !strings.HasPrefix(lines[0], strings.Join(export.Header, ",")) {
			t.Errorf("header = %q", lines[0])
		}
		if !strings.Contains(lines[1], "pizza") {
			t.Errorf("row = %q", lines[1])
		}
	})

	t.Run("auto file name", func(t *testing.T) {
		out := setup(t, "memory")
		dir := t.TempDir()
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
		if got := run(t, &exportCmd{}, "-o", "auto"); got != subcommands.ExitSuccess {
			t.Fatalf("status = %v", got)
		}
		if out.Len() != 0 {
			t.Errorf("stdout should stay empty with -o, got %q", out)
		}
		data, err := os.ReadFile(filepath.Join(dir, export.Filename(time.Now().UTC())))
		if err != nil {
			t.Fatalf("read export: %v", err)
		}
		if n := strings.Count(strings.TrimSpace(string(data)), "\n"); n != 2 {
			t.Errorf("file has %d data rows, want 2", n)
		}
	})

	t.Run("bad month", func(t *testing.T) {
		setup(t, "memory")
		if got := run(t, &exportCmd{}, "-m", "25-05"); got != subcommands.ExitUsageError {
			t.Errorf("status = %v, want usage error", got)
		}
	})
}

func TestMigrateCmd(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		out := setup(t, "sqlite")
		t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "cli.db"))

		if got := run(t, &migrateCmd{}, "-version"); got != subcommands.ExitSuccess {
			t.Fatalf("version status = %v", got)
		}
		if got := run(t, &migrateCmd{}); got != subcommands.ExitSuccess {
			t.Fatalf("migrate status = %v", got)
		}
		want := "sqlite schema version 0\nsqlite schema version 2\n"
		if out.String() != want {
			t.Errorf("output = %q, want %q", out, want)
		}
	})

	t.Run("memory has no schema", func(t *testing.T) {
		setup(t, "memory")
		if got := run(t, &migrateCmd{}); got != subcommands.ExitUsageError {
			t.Errorf("status = %v, want usage error", got)
		}
	})
}
