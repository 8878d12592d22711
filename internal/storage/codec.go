package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"flatshare/internal/core"
)

// splitColumns is the flat row form of a core.Split.
type splitColumns struct {
	Type         string
	Participants string
	Shares       string
}

func encodeSplit(s core.Split) (splitColumns, error) {
	kind, users, shares := core.SplitParts(s)
	if kind == "" {
		return splitColumns{}, fmt.Errorf("encode split: %w", core.ErrMissingSplit)
	}
	if users == nil {
		users = []core.UserID{}
	}
	p, err := json.Marshal(users)
	if err != nil {
		return splitColumns{}, fmt.Errorf("encode participants: %w", err)
	}
	raw := make(map[core.UserID]string, len(shares))
	for u, v := range shares {
		raw[u] = v.String()
	}
	sh, err := json.Marshal(raw)
	if err != nil {
		return splitColumns{}, fmt.Errorf("encode shares: %w", err)
	}
	return splitColumns{Type: string(kind), Participants: string(p), Shares: string(sh)}, nil
}

// decodeSplit rebuilds a split from its columns. An unknown split type
// yields a nil split so the row still loads and folds as a no-op.
func decodeSplit(c splitColumns) (core.Split, error) {
	kind, err := core.ParseSplitType(c.Type)
	if err != nil {
		return nil, nil
	}
	var users []core.UserID
	if strings.TrimSpace(c.Participants) != "" {
		if err := json.Unmarshal([]byte(c.Participants), &users); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}
	var shares map[core.UserID]decimal.Decimal
	if strings.TrimSpace(c.Shares) != "" {
		raw := map[core.UserID]string{}
		if err := json.Unmarshal([]byte(c.Shares), &raw); err != nil {
			return nil, fmt.Errorf("decode shares: %w", err)
		}
		shares = make(map[core.UserID]decimal.Decimal, len(raw))
		for u, v := range raw {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("decode share for %s: %w", u, err)
			}
			shares[u] = d
		}
	}
	return core.NewSplit(kind, users, shares)
}

// timeLayouts covers what the sqlite driver writes for time.Time values.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the driver's native time or its text forms.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time value %T", v)
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
