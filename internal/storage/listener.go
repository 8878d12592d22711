package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// NotifyChannel is the Postgres channel fed by the change triggers.
const NotifyChannel = "ledger_changes"

// Change is one row-level change reported by Postgres.
type Change struct {
	Entity string `json:"entity"`
	Op     string `json:"op"`
	ID     string `json:"id"`
}

func parseChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decode change payload: %w", err)
	}
	return c, nil
}

// Listener turns Postgres notifications into callbacks so other server
// instances' writes trigger a recompute here too.
type Listener struct {
	dsn          string
	pingInterval time.Duration
}

func NewListener(dsn string) *Listener {
	return &Listener{dsn: dsn, pingInterval: 90 * time.Second}
}

// Run blocks until ctx is cancelled. onChange is called for every
// notification, and with a zero Change after a reconnect since
// notifications may have been missed meanwhile.
func (l *Listener) Run(ctx context.Context, onChange func(Change)) error {
	pl := pq.NewListener(l.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			slog.InfoContext(ctx, "Postgres listener connected", "channel", NotifyChannel)
		case pq.ListenerEventDisconnected:
			slog.WarnContext(ctx, "Postgres listener disconnected", "error", err)
		case pq.ListenerEventReconnected:
			slog.InfoContext(ctx, "Postgres listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			slog.WarnContext(ctx, "Postgres listener connection attempt failed", "error", err)
		}
	})
	defer pl.Close()

	if err := pl.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-pl.Notify:
			if n == nil {
				onChange(Change{})
				continue
			}
			c, err := parseChange(n.Extra)
			if err != nil {
				slog.WarnContext(ctx, "Ignoring malformed notification", "error", err, "payload", n.Extra)
				onChange(Change{})
				continue
			}
			onChange(c)
		case <-ticker.C:
			go func() {
				if err := pl.Ping(); err != nil {
					slog.WarnContext(ctx, "Postgres listener ping failed", "error", err)
				}
			}()
		}
	}
}
