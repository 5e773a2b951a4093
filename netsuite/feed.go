package netsuite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/utils"
)

var _ models.InvoiceFeed = (*Client)(nil)

// openInvoiceQueryTemplate is the base dataset for every AR report: all
// open customer invoices (unpaid balance > 0) inside the lookback window.
const openInvoiceQueryTemplate = `
SELECT
    t.id                  AS transaction_id,
    t.tranid              AS invoice_number,
    t.trandate            AS invoice_date,
    t.duedate             AS due_date,
    t.entity              AS customer_id,
    e.entityid            AS customer_name,
    t.foreignamountunpaid AS unpaid_amount
FROM transaction t
JOIN entity e
    ON e.id = t.entity
WHERE
    t.type = 'CustInvc'
    AND NVL(t.foreignamountunpaid, 0) > 0
    AND t.trandate BETWEEN TO_DATE('{{.startDate}}', 'YYYY-MM-DD')
              AND TO_DATE('{{.asOfDate}}', 'YYYY-MM-DD')
ORDER BY
    t.duedate DESC
`

// FetchOpenInvoiceRows implements models.InvoiceFeed. Row values come
// back stringly typed; mapping here is lossless and dropping anything is
// left to the normalizer's filter stage.
func (c *Client) FetchOpenInvoiceRows(ctx context.Context, asOf time.Time, lookbackDays int, limit int) ([]models.OpenInvoiceRow, error) {
	if lookbackDays <= 0 {
		lookbackDays = models.DefaultLookbackDays
	}
	startDate := asOf.AddDate(0, 0, -lookbackDays)

	query, err := utils.ExecTemplate(openInvoiceQueryTemplate, map[string]interface{}{
		"startDate": startDate.Format("2006-01-02"),
		"asOfDate":  asOf.Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}

	result, err := c.SuiteQL(ctx, query, models.ClampFeedLimit(limit), 0)
	if err != nil {
		return nil, fmt.Errorf("fetch open invoices: %w", err)
	}

	rows := make([]models.OpenInvoiceRow, 0, len(result.Items))
	for _, item := range result.Items {
		rows = append(rows, models.OpenInvoiceRow{
			TransactionID: itemString(item, "transaction_id"),
			InvoiceNumber: itemString(item, "invoice_number"),
			InvoiceDate:   itemString(item, "invoice_date"),
			DueDate:       itemString(item, "due_date"),
			CustomerID:    itemString(item, "customer_id"),
			CustomerName:  itemString(item, "customer_name"),
			UnpaidAmount:  itemDecimal(item, "unpaid_amount"),
		})
	}
	return rows, nil
}

// itemString reads a SuiteQL column that may arrive as a string or a
// number. Missing or null values yield "".
func itemString(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case string:
		return v
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return ""
	}
}

// itemDecimal reads an amount column. Missing, null or malformed values
// default to zero rather than erroring the batch.
func itemDecimal(item map[string]any, key string) decimal.Decimal {
	switch v := item[key].(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(v)
	default:
		return decimal.Zero
	}
}
