package service

import (
	"context"
	"fmt"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSheetsService reads reference tables from one spreadsheet; keys are
// A1 ranges such as "Prices!A:Z".
type GoogleSheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewGoogleSheetsService authenticates with the configured service account
// file. Extra options are appended after the credentials.
func NewGoogleSheetsService(ctx context.Context, cfg *config.GoogleSheetsConfig, opts ...option.ClientOption) (*GoogleSheetsService, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("gsheets.spreadsheet_id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	clientOpts = append(clientOpts, opts...)

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}

	return &GoogleSheetsService{srv: srv, spreadsheetID: cfg.SpreadsheetID}, nil
}

// Fetch implements ReferenceSource. The first row of the range is the header.
func (s *GoogleSheetsService) Fetch(ctx context.Context, key string) (*tabular.Table, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, key).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read range %s: %w", key, err)
	}

	values := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		line := make([]string, len(row))
		for i, cell := range row {
			line[i] = cellText("", cell)
		}
		values = append(values, line)
	}
	return tabular.FromValues(values)
}
