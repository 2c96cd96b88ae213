package sheets

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/Abra-CatAbra/foodsync-ai/internal/sink"
)

// Config holds Google Sheets sink configuration.
type Config struct {
	SpreadsheetID string
	Token         string // bearer credential for the Sheets API
	BaseURL       string
	SheetName     string
}

// Sink appends food log rows to a Google Sheet through the Sheets
// REST API (values:append with USER_ENTERED input).
type Sink struct {
	client        *resty.Client
	spreadsheetID string
	sheetName     string
	baseURL       string
}

// New creates a new Sheets sink.
func New(cfg *Config) *Sink {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.Token)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(30 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://sheets.googleapis.com/v4"
	}
	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	return &Sink{
		client:        client,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		baseURL:       baseURL,
	}
}

type valueRange struct {
	Range  string          `json:"range,omitempty"`
	Values [][]interface{} `json:"values"`
}

type sheetsError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// EnsureHeader creates the header row if it is absent or wrong.
func (s *Sink) EnsureHeader(ctx context.Context) error {
	headerRange := fmt.Sprintf("%s!A1:D1", s.sheetName)

	var current valueRange
	var apiErr sheetsError
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&current).
		SetError(&apiErr).
		Get(s.valuesURL(headerRange, ""))
	if err != nil {
		return fmt.Errorf("failed to read sheet header: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sheets API returned error reading header: %s", s.errorMessage(resp, &apiErr))
	}

	if headerMatches(current.Values) {
		return nil
	}

	row := make([]interface{}, len(sink.Header))
	for i, h := range sink.Header {
		row[i] = h
	}
	body := valueRange{Values: [][]interface{}{row}}

	resp, err = s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		SetQueryParam("valueInputOption", "USER_ENTERED").
		Put(s.valuesURL(headerRange, ""))
	if err != nil {
		return fmt.Errorf("failed to write sheet header: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sheets API returned error writing header: %s", s.errorMessage(resp, &apiErr))
	}
	return nil
}

// Append writes one log entry as a new row at the bottom of the sheet.
func (s *Sink) Append(ctx context.Context, entry domain.LogEntry) error {
	body := valueRange{
		Values: [][]interface{}{{
			entry.Date.Format("2006-01-02 15:04:05"),
			entry.FoodName,
			entry.Recipe,
			entry.PhotoRef,
		}},
	}

	var apiErr sheetsError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		SetQueryParam("valueInputOption", "USER_ENTERED").
		SetQueryParam("insertDataOption", "INSERT_ROWS").
		Post(s.valuesURL(fmt.Sprintf("%s!A:D", s.sheetName), ":append"))
	if err != nil {
		return fmt.Errorf("failed to append to sheet: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sheets API returned error on append: %s", s.errorMessage(resp, &apiErr))
	}
	return nil
}

func (s *Sink) valuesURL(rangeA1, suffix string) string {
	return fmt.Sprintf("%s/spreadsheets/%s/values/%s%s",
		s.baseURL, s.spreadsheetID, url.PathEscape(rangeA1), suffix)
}

func (s *Sink) errorMessage(resp *resty.Response, apiErr *sheetsError) string {
	if apiErr != nil && apiErr.Error != nil {
		return fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
}

func headerMatches(values [][]interface{}) bool {
	if len(values) == 0 || len(values[0]) != len(sink.Header) {
		return false
	}
	for i, want := range sink.Header {
		got, ok := values[0][i].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}
