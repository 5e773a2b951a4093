// Package reports holds the AR decision-support reports: the aging
// summary, customer risk profiles, the collections priority queue, the
// daily AR brief and collections email drafts. Every report has a pure
// Build* function over normalized invoice records plus an as-of date, and
// a Get* wrapper that pulls one snapshot from the feed collaborator. The
// Build* functions are deterministic: identical input and as-of date
// produce byte-identical output.
package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
)

// Aging bucket keys, in severity order. The enumeration order doubles as
// the tie-break when bucket amounts are equal (first max wins).
const (
	BucketKeyCurrent       = "current"
	BucketKeyOverdue0To10  = "overdue_0_10"
	BucketKeyOverdue11To20 = "overdue_11_20"
	BucketKeyOverdue21To30 = "overdue_21_30"
	BucketKeyOverdue31Plus = "overdue_31_plus"
)

type AgingTotals struct {
	OpenARTotal   decimal.Decimal `json:"open_ar_total"`
	Current       decimal.Decimal `json:"current"`
	Overdue0To10  decimal.Decimal `json:"overdue_0_10"`
	Overdue11To20 decimal.Decimal `json:"overdue_11_20"`
	Overdue21To30 decimal.Decimal `json:"overdue_21_30"`
	Overdue31Plus decimal.Decimal `json:"overdue_31_plus"`
}

type AgingCounts struct {
	OpenInvoices  int `json:"open_invoices"`
	Current       int `json:"current"`
	Overdue0To10  int `json:"overdue_0_10"`
	Overdue11To20 int `json:"overdue_11_20"`
	Overdue21To30 int `json:"overdue_21_30"`
	Overdue31Plus int `json:"overdue_31_plus"`
	// DroppedRows counts feed rows excluded for a missing due date or a
	// non-positive unpaid amount. Exposed so the drop-and-continue filter
	// stays observable.
	DroppedRows int `json:"dropped_rows"`
}

type TopOverdueCustomer struct {
	CustomerID        string          `json:"customer_id"`
	CustomerName      string          `json:"customer_name"`
	OverdueTotal      decimal.Decimal `json:"overdue_total"`
	OldestDaysOverdue int             `json:"oldest_days_overdue"`
}

type ARAgingSummaryResponse struct {
	AsOfDate            string                `json:"as_of_date"`
	Totals              AgingTotals           `json:"totals"`
	Counts              AgingCounts           `json:"counts"`
	TopOverdueCustomers []*TopOverdueCustomer `json:"top_overdue_customers"`
}

type ARAgingSummaryParams struct {
	AsOfDate     time.Time
	LookbackDays int
	Limit        int
	TopN         int
}

// overdueCustomerAgg is the fixed per-customer accumulator used while
// classifying. Explicit fields only; no open-ended schema.
type overdueCustomerAgg struct {
	customerName string
	overdueTotal decimal.Decimal
	oldest       int
}

// BuildARAgingSummary classifies one invoice snapshot into the five aging
// buckets. An invoice due exactly on the as-of date is current, not
// overdue. Amounts accumulate at full precision and are rounded to two
// decimal places only here, at output.
func BuildARAgingSummary(records []models.InvoiceRecord, asOf time.Time, topN int) *ARAgingSummaryResponse {
	if topN <= 0 {
		topN = 10
	}

	usable, dropped := models.UsableInvoices(records)

	var totals AgingTotals
	counts := AgingCounts{DroppedRows: dropped}

	byCustomer := make(map[string]*overdueCustomerAgg)
	customerOrder := make([]string, 0)

	for _, r := range usable {
		counts.OpenInvoices++
		days := models.DaysOverdue(asOf, *r.DueDate)

		switch {
		case days <= 0:
			totals.Current = totals.Current.Add(r.UnpaidAmount)
			counts.Current++
		case days <= 10:
			totals.Overdue0To10 = totals.Overdue0To10.Add(r.UnpaidAmount)
			counts.Overdue0To10++
		case days <= 20:
			totals.Overdue11To20 = totals.Overdue11To20.Add(r.UnpaidAmount)
			counts.Overdue11To20++
		case days <= 30:
			totals.Overdue21To30 = totals.Overdue21To30.Add(r.UnpaidAmount)
			counts.Overdue21To30++
		default:
			totals.Overdue31Plus = totals.Overdue31Plus.Add(r.UnpaidAmount)
			counts.Overdue31Plus++
		}

		if days > 0 {
			agg, ok := byCustomer[r.CustomerID]
			if !ok {
				agg = &overdueCustomerAgg{}
				byCustomer[r.CustomerID] = agg
				customerOrder = append(customerOrder, r.CustomerID)
			}
			agg.customerName = r.CustomerName
			agg.overdueTotal = agg.overdueTotal.Add(r.UnpaidAmount)
			if days > agg.oldest {
				agg.oldest = days
			}
		}
	}

	totals.OpenARTotal = totals.Current.
		Add(totals.Overdue0To10).
		Add(totals.Overdue11To20).
		Add(totals.Overdue21To30).
		Add(totals.Overdue31Plus)

	// Ranked top overdue customers. Stable sort over first-seen input order
	// keeps ties deterministic.
	top := make([]*TopOverdueCustomer, 0, len(customerOrder))
	for _, cid := range customerOrder {
		agg := byCustomer[cid]
		top = append(top, &TopOverdueCustomer{
			CustomerID:        cid,
			CustomerName:      agg.customerName,
			OverdueTotal:      agg.overdueTotal.Round(2),
			OldestDaysOverdue: agg.oldest,
		})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].OverdueTotal.GreaterThan(top[j].OverdueTotal)
	})
	if len(top) > topN {
		top = top[:topN]
	}

	return &ARAgingSummaryResponse{
		AsOfDate: asOf.Format("2006-01-02"),
		Totals: AgingTotals{
			OpenARTotal:   totals.OpenARTotal.Round(2),
			Current:       totals.Current.Round(2),
			Overdue0To10:  totals.Overdue0To10.Round(2),
			Overdue11To20: totals.Overdue11To20.Round(2),
			Overdue21To30: totals.Overdue21To30.Round(2),
			Overdue31Plus: totals.Overdue31Plus.Round(2),
		},
		Counts:              counts,
		TopOverdueCustomers: top,
	}
}

// GetARAgingSummary fetches one open-invoice snapshot and classifies it.
func GetARAgingSummary(ctx context.Context, feed models.InvoiceFeed, params ARAgingSummaryParams) (*ARAgingSummaryResponse, error) {
	asOf := defaultAsOf(params.AsOfDate)
	records, err := models.GetOpenInvoiceRecords(ctx, feed, asOf, params.LookbackDays, params.Limit)
	if err != nil {
		return nil, err
	}
	return BuildARAgingSummary(records, asOf, params.TopN), nil
}

// defaultAsOf substitutes the current UTC date for a zero as-of date.
// The as-of date is always an explicit parameter downstream of here.
func defaultAsOf(asOf time.Time) time.Time {
	if asOf.IsZero() {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return asOf
}
