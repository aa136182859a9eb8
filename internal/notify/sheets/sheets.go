// Package sheets appends limit alerts to a Google spreadsheet, one row per
// exceeded (month, group) entry.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/notify"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Header is the column layout of the alert sheet.
var Header = []any{"Generated", "User", "Scope", "Month", "Group", "Amount", "Limit", "Excess", "% over"}

type appender interface {
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

type Sink struct {
	api           appender
	spreadsheetID string
	sheetName     string
}

var _ notify.Sink = (*Sink)(nil)

// New builds a Sheets service authenticated with service-account
// credentials, inline JSON taking precedence over a file.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	var credentials []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentials = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newSink(valuesAPI{svc: svc}, cfg), nil
}

func newSink(api appender, cfg Config) *Sink {
	name := cfg.SheetName
	if name == "" {
		name = "Alerts"
	}
	return &Sink{api: api, spreadsheetID: cfg.SpreadsheetID, sheetName: name}
}

func (s *Sink) Name() string { return "sheets" }

func (s *Sink) Notify(ctx context.Context, msg *amqp.LimitAlertMessage) error {
	rows := Rows(msg)
	if len(rows) == 0 {
		return nil
	}
	rng := fmt.Sprintf("%s!A:I", s.sheetName)
	if err := s.api.Append(ctx, s.spreadsheetID, rng, rows); err != nil {
		return fmt.Errorf("append to %s: %w", s.sheetName, err)
	}
	return nil
}

// Rows converts msg to sheet rows matching Header.
func Rows(msg *amqp.LimitAlertMessage) [][]any {
	generated := msg.GeneratedAt.UTC().Format(time.RFC3339)
	rows := make([][]any, 0, len(msg.Exceeded))
	for _, e := range msg.Exceeded {
		rows = append(rows, []any{
			generated,
			msg.Username,
			msg.Scope,
			e.Date,
			string(e.Group),
			e.Amount.StringFixed(2),
			e.Limit.StringFixed(2),
			e.Excess().StringFixed(2),
			e.PercentOver().StringFixed(1),
		})
	}
	return rows
}

type valuesAPI struct {
	svc *gsheet.Service
}

func (v valuesAPI) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := v.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
