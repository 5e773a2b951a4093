package netsuite

import (
	"context"
	"fmt"
	"time"
)

// Simple passthrough finance queries. These return the raw SuiteQL result
// untouched; the structured AR reports live in models/reports.

// GetOverdueInvoices returns customer invoices that went overdue within
// the last N days.
func (c *Client) GetOverdueInvoices(ctx context.Context, days int) (*SuiteQLResult, error) {
	if days <= 0 {
		days = 30
	}
	query := fmt.Sprintf(`
    SELECT
        t.id,
        t.tranid,
        t.entity,
        t.trandate,
        t.duedate,
        t.foreigntotal
    FROM transaction t
    WHERE t.type = 'CustInvc'
      AND t.duedate < CURRENT_DATE
      AND t.duedate >= (CURRENT_DATE - %d)
    ORDER BY t.duedate ASC
    FETCH FIRST 10 ROWS ONLY
    `, days)
	return c.SuiteQL(ctx, query, 100, 0)
}

// GetUnpaidInvoicesOverThreshold returns invoices whose unpaid balance
// exceeds the given threshold, largest first.
func (c *Client) GetUnpaidInvoicesOverThreshold(ctx context.Context, threshold float64) (*SuiteQLResult, error) {
	if threshold <= 0 {
		threshold = 1000.0
	}
	query := fmt.Sprintf(`
    SELECT
        t.id,
        t.tranid,
        t.trandate,
        t.duedate,
        t.entity,
        t.foreigntotal,
        t.foreignamountunpaid
    FROM transaction t
    WHERE t.type = 'CustInvc'
        AND t.duedate >= (CURRENT_DATE - 90)
        AND t.foreignamountunpaid > %f
    ORDER BY t.foreignamountunpaid DESC
    FETCH FIRST 10 ROWS ONLY
    `, threshold)
	return c.SuiteQL(ctx, query, 100, 0)
}

// GetTotalRevenue returns total invoiced revenue between two dates
// (inclusive). Dates are validated before interpolation into the query.
func (c *Client) GetTotalRevenue(ctx context.Context, startDate string, endDate string) (*SuiteQLResult, error) {
	if err := validateISODates(startDate, endDate); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
    SELECT
        SUM(t.foreigntotal) AS total_revenue
    FROM transaction t
    WHERE t.type = 'CustInvc'
      AND t.trandate >= DATE '%s'
      AND t.trandate <= DATE '%s'
    `, startDate, endDate)
	return c.SuiteQL(ctx, query, 100, 0)
}

// GetTopCustomersByInvoiceAmount returns the top N customers by total
// invoiced amount between two dates.
func (c *Client) GetTopCustomersByInvoiceAmount(ctx context.Context, startDate string, endDate string, topN int) (*SuiteQLResult, error) {
	if err := validateISODates(startDate, endDate); err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = 10
	}
	query := fmt.Sprintf(`
    SELECT
        t.entity,
        SUM(t.foreigntotal) AS total_invoiced
    FROM transaction t
    WHERE t.type = 'CustInvc'
      AND t.trandate >= DATE '%s'
      AND t.trandate <= DATE '%s'
    GROUP BY t.entity
    ORDER BY total_invoiced DESC
    FETCH FIRST %d ROWS ONLY
    `, startDate, endDate, topN)
	return c.SuiteQL(ctx, query, 100, 0)
}

// validateISODates guards against malformed input reaching the query
// string; only YYYY-MM-DD passes.
func validateISODates(dates ...string) error {
	for _, d := range dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("date %q must be YYYY-MM-DD", d)
		}
	}
	return nil
}
