package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultLookbackDays bounds how far back the open-invoice query reaches.
	DefaultLookbackDays = 365

	// MaxFeedRows is the hard row ceiling per feed call. The backend enforces
	// the same ceiling on its side; we clamp locally as well so a caller
	// asking for more is silently truncated rather than errored.
	MaxFeedRows = 1000
)

// OpenInvoiceRow is one raw row from the invoice feed, exactly as the
// backend returns it: dates as display text, amount possibly absent
// (absent decodes to zero).
type OpenInvoiceRow struct {
	TransactionID string          `json:"transaction_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"`
	DueDate       string          `json:"due_date"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	UnpaidAmount  decimal.Decimal `json:"unpaid_amount"`
}

// InvoiceRecord is the canonical invoice line every report consumes.
// Dates are parsed; a nil DueDate marks the record unusable for aging and
// risk math (it is skipped downstream, never errored).
type InvoiceRecord struct {
	TransactionID string          `json:"transaction_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   *time.Time      `json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	UnpaidAmount  decimal.Decimal `json:"unpaid_amount"`
}

// InvoiceFeed is the collaborator contract for the upstream accounting
// backend. The implementation owns query construction, authentication and
// credential refresh; it must be safe for concurrent use.
type InvoiceFeed interface {
	FetchOpenInvoiceRows(ctx context.Context, asOf time.Time, lookbackDays int, limit int) ([]OpenInvoiceRow, error)
}

// feedDateLayouts lists the textual date formats the feed is known to emit.
// SuiteQL returns MM/DD/YYYY; structured sources use ISO dates.
var feedDateLayouts = []string{"01/02/2006", "2006-01-02"}

// ParseFeedDate converts a feed date string to a UTC calendar date.
// Unparsable or empty input returns nil rather than an error so one bad
// row never fails a whole batch.
func ParseFeedDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range feedDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// NormalizeInvoiceRows reshapes raw feed rows into canonical records.
// This is a pure mapping stage: no rows are dropped here, so callers can
// observe exactly what the feed returned.
func NormalizeInvoiceRows(rows []OpenInvoiceRow) []InvoiceRecord {
	records := make([]InvoiceRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, InvoiceRecord{
			TransactionID: r.TransactionID,
			InvoiceNumber: r.InvoiceNumber,
			InvoiceDate:   ParseFeedDate(r.InvoiceDate),
			DueDate:       ParseFeedDate(r.DueDate),
			CustomerID:    r.CustomerID,
			CustomerName:  r.CustomerName,
			UnpaidAmount:  r.UnpaidAmount,
		})
	}
	return records
}

// Usable reports whether a record participates in aging and risk math:
// a positive unpaid balance and a resolvable due date.
func (r InvoiceRecord) Usable() bool {
	return r.DueDate != nil && r.UnpaidAmount.IsPositive()
}

// UsableInvoices is the explicit filter stage in front of every report.
// The dropped count is surfaced so callers and tests can observe how many
// rows were excluded instead of the filter hiding them.
func UsableInvoices(records []InvoiceRecord) ([]InvoiceRecord, int) {
	usable := make([]InvoiceRecord, 0, len(records))
	dropped := 0
	for _, r := range records {
		if !r.Usable() {
			dropped++
			continue
		}
		usable = append(usable, r)
	}
	return usable, dropped
}

// DaysOverdue is the calendar-day difference between the as-of date and
// the due date. Zero or negative means not yet overdue.
func DaysOverdue(asOf time.Time, due time.Time) int {
	a := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(a.Sub(d).Hours() / 24)
}

// ClampFeedLimit applies the local row ceiling. Non-positive limits fall
// back to the ceiling itself.
func ClampFeedLimit(limit int) int {
	if limit <= 0 || limit > MaxFeedRows {
		return MaxFeedRows
	}
	return limit
}

// GetOpenInvoiceRecords fetches one snapshot of open invoices from the
// feed collaborator and normalizes it. A collaborator failure fails the
// whole call; row-level anomalies never do.
func GetOpenInvoiceRecords(ctx context.Context, feed InvoiceFeed, asOf time.Time, lookbackDays int, limit int) ([]InvoiceRecord, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	rows, err := feed.FetchOpenInvoiceRows(ctx, asOf, lookbackDays, ClampFeedLimit(limit))
	if err != nil {
		return nil, err
	}
	return NormalizeInvoiceRows(rows), nil
}
