package reports_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models/reports"
)

func TestBuildDailyARBrief_Headline(t *testing.T) {
	records := []models.InvoiceRecord{
		inv("1", "C1", "Acme", 0, "600"),   // current
		inv("2", "C2", "Globex", 15, "300"),
		inv("3", "C3", "Initech", 45, "100"),
	}
	brief := reports.BuildDailyARBrief(records, testAsOf, 0, 0)

	if !brief.Headline.OpenARTotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("open AR expected 1000, got %s", brief.Headline.OpenARTotal)
	}
	if !brief.Headline.OverdueTotal.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("overdue total expected 400, got %s", brief.Headline.OverdueTotal)
	}
	if brief.Headline.OverduePct != 40.0 {
		t.Fatalf("overdue pct expected 40.0, got %v", brief.Headline.OverduePct)
	}
	if brief.Headline.OpenInvoices != 3 {
		t.Fatalf("open invoices expected 3, got %d", brief.Headline.OpenInvoices)
	}
	if brief.Headline.LargestOverdueBucketKey != reports.BucketKeyOverdue11To20 {
		t.Fatalf("largest bucket expected %s, got %s", reports.BucketKeyOverdue11To20, brief.Headline.LargestOverdueBucketKey)
	}
	if !brief.Headline.LargestOverdueBucketAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("largest bucket amount expected 300, got %s", brief.Headline.LargestOverdueBucketAmount)
	}
}

func TestBuildDailyARBrief_EmptyBook(t *testing.T) {
	brief := reports.BuildDailyARBrief(nil, testAsOf, 0, 0)

	if brief.Headline.OverduePct != 0 {
		t.Fatalf("empty book overdue pct must be 0, got %v", brief.Headline.OverduePct)
	}
	if !brief.Headline.OpenARTotal.IsZero() {
		t.Fatalf("empty book open AR must be 0, got %s", brief.Headline.OpenARTotal)
	}
	if len(brief.TodayPriorityQueue) != 0 || len(brief.Escalations) != 0 {
		t.Fatalf("empty book should have empty queue and escalations")
	}
}

func TestBuildDailyARBrief_LargestBucketTieFirstWins(t *testing.T) {
	records := []models.InvoiceRecord{
		inv("1", "C1", "Acme", 5, "250"),
		inv("2", "C2", "Globex", 45, "250"),
	}
	brief := reports.BuildDailyARBrief(records, testAsOf, 0, 0)

	if brief.Headline.LargestOverdueBucketKey != reports.BucketKeyOverdue0To10 {
		t.Fatalf("tie should keep the first bucket in enumeration order, got %s", brief.Headline.LargestOverdueBucketKey)
	}
}

func TestBuildDailyARBrief_EscalationsByAgeOrPriority(t *testing.T) {
	records := []models.InvoiceRecord{
		inv("1", "C1", "Acme", 45, "500"),  // 31+ days -> escalates
		inv("2", "C2", "Globex", 5, "100"), // mild -> does not
	}
	brief := reports.BuildDailyARBrief(records, testAsOf, 0, 0)

	if len(brief.Escalations) != 1 {
		t.Fatalf("expected 1 escalation, got %d", len(brief.Escalations))
	}
	if brief.Escalations[0].CustomerID != "C1" {
		t.Fatalf("expected C1 escalated, got %s", brief.Escalations[0].CustomerID)
	}
	// Escalated customers come out of the same queue the brief shows.
	found := false
	for _, item := range brief.TodayPriorityQueue {
		if item.CustomerID == "C1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("escalated customer missing from the priority queue")
	}
}

func TestGetDailyARBrief_SingleSnapshotConsistency(t *testing.T) {
	feed := &recordFeed{rows: []models.OpenInvoiceRow{
		{TransactionID: "1", DueDate: "02/14/2026", CustomerID: "C1", CustomerName: "Acme", UnpaidAmount: decimal.NewFromInt(500)},
		{TransactionID: "2", DueDate: "04/10/2026", CustomerID: "C2", CustomerName: "Globex", UnpaidAmount: decimal.NewFromInt(700)},
	}}
	brief, err := reports.GetDailyARBrief(context.Background(), feed, reports.DailyARBriefParams{AsOfDate: testAsOf})
	if err != nil {
		t.Fatalf("GetDailyARBrief: %v", err)
	}
	if brief.Aging == nil {
		t.Fatalf("brief is missing the aging section")
	}
	if !brief.Headline.OpenARTotal.Equal(brief.Aging.Totals.OpenARTotal) {
		t.Fatalf("headline open AR %s disagrees with aging section %s",
			brief.Headline.OpenARTotal, brief.Aging.Totals.OpenARTotal)
	}
	if brief.Headline.OpenInvoices != brief.Aging.Counts.OpenInvoices {
		t.Fatalf("headline invoice count disagrees with aging section")
	}
}
