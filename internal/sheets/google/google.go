// Package google mirrors expenses into a Google Sheets tab through a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"flatshare/internal/core"
	applog "flatshare/internal/log"
	"flatshare/internal/sheets"
)

var _ sheets.Mirror = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// One of these is required; GOOGLE_APPLICATION_CREDENTIALS is the
	// fallback file path.
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	roster        core.Roster
	loc           *time.Location

	mu      sync.Mutex
	sheetID *int64
}

// New authenticates with the service account in cfg.
func New(ctx context.Context, cfg Config, roster core.Roster, loc *time.Location) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentialsJSON(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created",
		"component", applog.ComponentSheets, "sheet", cfg.SheetName)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, roster, loc), nil
}

// NewWithService wraps an existing service, for custom endpoints.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, roster core.Roster, loc *time.Location) *Client {
	if sheetName == "" {
		sheetName = "Expenses"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		roster:        roster,
		loc:           loc,
	}
}

func credentialsJSON(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "component", applog.ComponentSheets)
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account file", "component", applog.ComponentSheets, "path", file)
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// a1 builds an A1 range on the mirror tab. The tab name is always quoted.
func (c *Client) a1(rng string) string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + rng
}

// EnsureHeader writes the header row when the first row is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A1:H1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{sheets.Header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("A1:H1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheetName, err)
	}
	return nil
}

// idRows maps expense id to its 1-based row number.
func (c *Client) idRows(ctx context.Context) (map[string]int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1(sheets.IDColumn+":"+sheets.IDColumn)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids of %s: %w", c.sheetName, err)
	}
	out := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id == "" || (i == 0 && id == sheets.Header[len(sheets.Header)-1]) {
			continue
		}
		if _, dup := out[id]; !dup {
			out[id] = i + 1
		}
	}
	return out, nil
}

func (c *Client) MirroredIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := c.idRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(rows))
	for id := range rows {
		out[id] = struct{}{}
	}
	return out, nil
}

func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	if e.ID == "" {
		return "", errors.New("expense without id")
	}
	rows, err := c.idRows(ctx)
	if err != nil {
		return "", err
	}
	if n, ok := rows[e.ID]; ok {
		return c.a1(fmt.Sprintf("A%d:H%d", n, n)), nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{sheets.Row(e, c.roster, c.loc)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:H"), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return c.a1("A:H"), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	rows, err := c.idRows(ctx)
	if err != nil {
		return err
	}
	n, ok := rows[id]
	if !ok {
		return nil
	}
	sheetID, err := c.tabID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
			// Tab 0 and row 0 are valid and must not be dropped as empty.
			ForceSendFields: []string{"SheetId", "StartIndex"},
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", n, c.sheetName, err)
	}
	return nil
}

// tabID resolves and caches the numeric id of the mirror tab.
func (c *Client) tabID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
