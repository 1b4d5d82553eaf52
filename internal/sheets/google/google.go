// Package google exports ledger rows to a Google Sheets spreadsheet using
// OAuth user credentials prepared by the oauth-init command.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spentee/internal/sheets"
)

// Options locates the spreadsheet and the OAuth material. Inline JSON wins
// over file paths when both are set.
type Options struct {
	SpreadsheetID string
	SheetName     string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ sheets.RowWriter = (*Client)(nil)

// NewClient builds a Sheets client from OAuth client credentials and a
// previously exchanged token.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	oauthCfg, err := LoadOAuthConfig(opts.OAuthClientJSON, opts.OAuthClientFile)
	if err != nil {
		return nil, err
	}
	token, err := loadToken(opts.OAuthTokenJSON, opts.OAuthTokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// LoadOAuthConfig parses OAuth client credentials from inline JSON or a
// file. It is shared with the oauth-init command.
func LoadOAuthConfig(inlineJSON, file string) (*oauth2.Config, error) {
	raw, err := readSource(inlineJSON, file)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	cfg, err := goauth.ConfigFromJSON(raw, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client credentials: %w", err)
	}
	return cfg, nil
}

func loadToken(inlineJSON, file string) (*oauth2.Token, error) {
	raw, err := readSource(inlineJSON, file)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &token, nil
}

func readSource(inlineJSON, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inlineJSON) != "":
		return []byte(inlineJSON), nil
	case strings.TrimSpace(file) != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return raw, nil
	default:
		return nil, errors.New("not configured")
	}
}

// Append writes the row after the last used one and returns its A1 range.
func (c *Client) Append(ctx context.Context, row sheets.Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.sheetName, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:F%d", c.sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		row.Date, row.Kind, row.Description, row.Category, row.Amount, row.Reference,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}
