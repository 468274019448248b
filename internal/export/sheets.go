// Package export appends budget period summaries to a Google Sheet.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetbee/internal/config"
	"budgetbee/internal/core"
)

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New builds an exporter from the Google settings in cfg. The OAuth client
// and token come from files or inline JSON, whichever is set.
func New(ctx context.Context, cfg *config.Config) (*Exporter, error) {
	if cfg.GoogleSpreadsheetID == "" || cfg.GoogleSheetName == "" {
		return nil, errors.New("missing Google spreadsheet ID or sheet name")
	}

	oauthCfg, err := loadOAuthConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("load OAuth client: %w", err)
	}
	token, err := LoadToken(cfg)
	if err != nil {
		return nil, fmt.Errorf("load OAuth token: %w", err)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
	}, nil
}

// AppendSummary appends one report row for a period summary.
func (e *Exporter) AppendSummary(ctx context.Context, period core.BudgetPeriod, sum core.PeriodSummary) error {
	end := ""
	if !period.Open() {
		end = period.EndDate.ISO()
	}
	row := []any{
		time.Now().UTC().Format(time.RFC3339),
		period.Name,
		period.StartDate.ISO(),
		end,
		sum.Allocated.Dollars(),
		sum.Spent.Dollars(),
		sum.Projected.Dollars(),
		sum.Remaining.Dollars(),
	}

	rangeRef := fmt.Sprintf("%s!A:H", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.
		Append(e.spreadsheetID, rangeRef, &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append summary row: %w", err)
	}
	return nil
}

// LoadOAuthConfig exposes the OAuth client config for cmd/oauth-init.
func LoadOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	return loadOAuthConfig(cfg)
}

func loadOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	raw := []byte(cfg.GoogleOAuthClientJSON)
	if len(raw) == 0 {
		if cfg.GoogleOAuthClientFile == "" {
			return nil, errors.New("no OAuth client file or JSON configured")
		}
		var err error
		raw, err = os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return nil, err
		}
	}
	return google.ConfigFromJSON(raw, gsheet.SpreadsheetsScope)
}

// LoadToken reads the stored OAuth token from file or inline JSON.
func LoadToken(cfg *config.Config) (*oauth2.Token, error) {
	raw := []byte(cfg.GoogleOAuthTokenJSON)
	if len(raw) == 0 {
		if cfg.GoogleOAuthTokenFile == "" {
			return nil, errors.New("no OAuth token file or JSON configured")
		}
		var err error
		raw, err = os.ReadFile(cfg.GoogleOAuthTokenFile)
		if err != nil {
			return nil, err
		}
	}
	return unmarshalToken(raw)
}
