package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/utils"
)

// Escalation thresholds: any queue item this old or this highly scored is
// flagged for urgent handling.
const (
	escalationMinDaysOverdue = 31
	escalationMinPriority    = 0.80
)

type BriefHeadline struct {
	OpenARTotal                decimal.Decimal `json:"open_ar_total"`
	OverdueTotal               decimal.Decimal `json:"overdue_total"`
	OverduePct                 float64         `json:"overdue_pct"`
	OpenInvoices               int             `json:"open_invoices"`
	LargestOverdueBucketKey    string          `json:"largest_overdue_bucket_key"`
	LargestOverdueBucketAmount decimal.Decimal `json:"largest_overdue_bucket_amount"`
}

type DailyARBriefResponse struct {
	AsOfDate           string                  `json:"as_of_date"`
	Headline           BriefHeadline           `json:"headline"`
	Aging              *ARAgingSummaryResponse `json:"aging"`
	TopRiskCustomers   []*CustomerRiskProfile  `json:"top_risk_customers"`
	TodayPriorityQueue []*PriorityQueueItem    `json:"today_priority_queue"`
	Escalations        []*PriorityQueueItem    `json:"escalations"`
}

type DailyARBriefParams struct {
	AsOfDate     time.Time
	LookbackDays int
	Limit        int
	TopNQueue    int
	TopNRisk     int
}

// BuildDailyARBrief composes the aging snapshot, the top risk customers
// and the day's priority worklist into one report over a single invoice
// snapshot. Escalations are filtered from the queue the brief itself
// computed, so an escalated customer always appears in both lists.
func BuildDailyARBrief(records []models.InvoiceRecord, asOf time.Time, topNQueue int, topNRisk int) *DailyARBriefResponse {
	if topNQueue <= 0 {
		topNQueue = 10
	}
	if topNRisk <= 0 {
		topNRisk = 10
	}

	aging := BuildARAgingSummary(records, asOf, 10)
	risks := BuildCustomerRiskProfiles(records, asOf, decimal.Zero, topNRisk)
	fullRisks := BuildCustomerRiskProfiles(records, asOf, decimal.Zero, internalRiskPull)
	queue := BuildCollectionsPriorityQueue(fullRisks, topNQueue)

	openTotal := aging.Totals.OpenARTotal
	// Overdue total derives from open minus current, floored at zero to
	// guard against rounding drift going negative.
	overdueTotal := openTotal.Sub(aging.Totals.Current)
	if overdueTotal.IsNegative() {
		overdueTotal = decimal.Zero
	}
	overduePct := 0.0
	if openTotal.IsPositive() {
		overduePct = utils.Round2Float(overdueTotal.Div(openTotal).InexactFloat64() * 100)
	}

	bucketKey, bucketAmount := largestOverdueBucket(aging.Totals)

	escalations := make([]*PriorityQueueItem, 0)
	for _, item := range queue {
		if item.MaxDaysOverdue >= escalationMinDaysOverdue || item.PriorityScore >= escalationMinPriority {
			escalations = append(escalations, item)
		}
	}

	return &DailyARBriefResponse{
		AsOfDate: asOf.Format("2006-01-02"),
		Headline: BriefHeadline{
			OpenARTotal:                openTotal.Round(2),
			OverdueTotal:               overdueTotal.Round(2),
			OverduePct:                 overduePct,
			OpenInvoices:               aging.Counts.OpenInvoices,
			LargestOverdueBucketKey:    bucketKey,
			LargestOverdueBucketAmount: bucketAmount.Round(2),
		},
		Aging:              aging,
		TopRiskCustomers:   risks,
		TodayPriorityQueue: queue,
		Escalations:        escalations,
	}
}

// largestOverdueBucket scans the four overdue buckets in enumeration
// order (current excluded); on ties the first maximum encountered wins.
func largestOverdueBucket(totals AgingTotals) (string, decimal.Decimal) {
	keys := []string{BucketKeyOverdue0To10, BucketKeyOverdue11To20, BucketKeyOverdue21To30, BucketKeyOverdue31Plus}
	amounts := []decimal.Decimal{totals.Overdue0To10, totals.Overdue11To20, totals.Overdue21To30, totals.Overdue31Plus}

	key := keys[0]
	amount := amounts[0]
	for i := 1; i < len(keys); i++ {
		if amounts[i].GreaterThan(amount) {
			key = keys[i]
			amount = amounts[i]
		}
	}
	return key, amount
}

// GetDailyARBrief fetches one snapshot and composes the AR operations
// brief for it.
func GetDailyARBrief(ctx context.Context, feed models.InvoiceFeed, params DailyARBriefParams) (*DailyARBriefResponse, error) {
	asOf := defaultAsOf(params.AsOfDate)
	records, err := models.GetOpenInvoiceRecords(ctx, feed, asOf, params.LookbackDays, params.Limit)
	if err != nil {
		return nil, err
	}
	return BuildDailyARBrief(records, asOf, params.TopNQueue, params.TopNRisk), nil
}
