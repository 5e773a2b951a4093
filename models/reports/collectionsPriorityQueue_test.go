package reports_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models/reports"
)

func TestBuildCollectionsPriorityQueue_SingleCustomerScore(t *testing.T) {
	// $500 45 days overdue: risk 0.792; as the only profile its money
	// impact is exactly 1 (log scale against itself).
	//   0.50*0.792 + 0.30*1 + 0.10*0.75 + 0.10*(1/3) = 0.8043... -> 0.804
	records := []models.InvoiceRecord{inv("1", "C1", "Acme", 45, "500")}
	profiles := reports.BuildCustomerRiskProfiles(records, testAsOf, decimal.Zero, 0)
	queue := reports.BuildCollectionsPriorityQueue(profiles, 0)

	if len(queue) != 1 {
		t.Fatalf("expected 1 item, got %d", len(queue))
	}
	item := queue[0]
	if item.PriorityScore != 0.804 {
		t.Fatalf("priority score expected 0.804, got %v", item.PriorityScore)
	}
	if item.Rank != 1 {
		t.Fatalf("rank expected 1, got %d", item.Rank)
	}
	if item.RecommendedAction != reports.ActionCallAndEscalate {
		t.Fatalf("expected escalation action, got %q", item.RecommendedAction)
	}
}

func TestBuildCollectionsPriorityQueue_NoOverdueMoneyImpactZero(t *testing.T) {
	records := []models.InvoiceRecord{
		inv("1", "C1", "Acme", 0, "900"),
		inv("2", "C2", "Globex", -20, "4500"),
	}
	profiles := reports.BuildCustomerRiskProfiles(records, testAsOf, decimal.Zero, 0)
	queue := reports.BuildCollectionsPriorityQueue(profiles, 0)

	for _, item := range queue {
		if item.PriorityScore != 0 {
			t.Fatalf("%s: all-current book should have zero priority, got %v", item.CustomerID, item.PriorityScore)
		}
		if item.RecommendedAction != reports.ActionMonitor {
			t.Fatalf("%s: expected Monitor, got %q", item.CustomerID, item.RecommendedAction)
		}
	}
}

func TestBuildCollectionsPriorityQueue_RanksFollowTruncation(t *testing.T) {
	records := []models.InvoiceRecord{
		inv("1", "C1", "Acme", 5, "100"),
		inv("2", "C2", "Globex", 60, "5000"),
		inv("3", "C3", "Initech", 25, "2000"),
		inv("4", "C4", "Umbrella", 15, "800"),
	}
	profiles := reports.BuildCustomerRiskProfiles(records, testAsOf, decimal.Zero, 0)
	queue := reports.BuildCollectionsPriorityQueue(profiles, 2)

	if len(queue) != 2 {
		t.Fatalf("expected queue of 2, got %d", len(queue))
	}
	for i, item := range queue {
		if item.Rank != i+1 {
			t.Fatalf("rank at %d expected %d, got %d", i, i+1, item.Rank)
		}
	}
	if queue[0].PriorityScore < queue[1].PriorityScore {
		t.Fatalf("queue not sorted: %v < %v", queue[0].PriorityScore, queue[1].PriorityScore)
	}
	if queue[0].CustomerID != "C2" {
		t.Fatalf("expected C2 first, got %s", queue[0].CustomerID)
	}
}

func TestRecommendedAction_Ladder(t *testing.T) {
	cases := []struct {
		days     int
		expected string
	}{
		{45, reports.ActionCallAndEscalate},
		{31, reports.ActionCallAndEscalate},
		{30, reports.ActionFollowUp},
		{21, reports.ActionFollowUp},
		{20, reports.ActionSendReminder},
		{11, reports.ActionSendReminder},
		{10, reports.ActionGentleReminder},
		{1, reports.ActionGentleReminder},
	}
	for _, tc := range cases {
		records := []models.InvoiceRecord{inv("1", "C1", "Acme", tc.days, "100")}
		profiles := reports.BuildCustomerRiskProfiles(records, testAsOf, decimal.Zero, 0)
		queue := reports.BuildCollectionsPriorityQueue(profiles, 0)
		if queue[0].RecommendedAction != tc.expected {
			t.Fatalf("%d days: expected %q, got %q", tc.days, tc.expected, queue[0].RecommendedAction)
		}
	}
}

func TestPriorityReasons_FixedOrderSingleBucketSentence(t *testing.T) {
	// Invoices in two buckets: only the more severe bucket gets a sentence.
	records := []models.InvoiceRecord{
		inv("1", "C1", "Acme", 35, "1500"),
		inv("2", "C1", "Acme", 8, "500"),
	}
	profiles := reports.BuildCustomerRiskProfiles(records, testAsOf, decimal.Zero, 0)
	queue := reports.BuildCollectionsPriorityQueue(profiles, 0)

	reasons := queue[0].Reasons
	if len(reasons) != 4 {
		t.Fatalf("expected 4 reasons, got %d: %v", len(reasons), reasons)
	}
	if reasons[0] != "$2000 overdue" {
		t.Fatalf("reason 0 expected %q, got %q", "$2000 overdue", reasons[0])
	}
	if reasons[1] != "Oldest overdue 35 days" {
		t.Fatalf("reason 1 expected %q, got %q", "Oldest overdue 35 days", reasons[1])
	}
	if reasons[2] != "1 invoice(s) 31+ days overdue" {
		t.Fatalf("reason 2 expected %q, got %q", "1 invoice(s) 31+ days overdue", reasons[2])
	}
	if !strings.HasPrefix(reasons[3], "Risk score ") {
		t.Fatalf("reason 3 expected risk score sentence, got %q", reasons[3])
	}
}

func TestGetCollectionsPriorityQueue_EndToEnd(t *testing.T) {
	feed := &recordFeed{rows: []models.OpenInvoiceRow{
		{TransactionID: "1", DueDate: "02/14/2026", CustomerID: "C1", CustomerName: "Acme", UnpaidAmount: decimal.NewFromInt(500)},
		{TransactionID: "2", DueDate: "03/29/2026", CustomerID: "C2", CustomerName: "Globex", UnpaidAmount: decimal.NewFromInt(90)},
	}}
	resp, err := reports.GetCollectionsPriorityQueue(context.Background(), feed, reports.CollectionsPriorityQueueParams{AsOfDate: testAsOf})
	if err != nil {
		t.Fatalf("GetCollectionsPriorityQueue: %v", err)
	}
	if resp.AsOfDate != "2026-03-31" {
		t.Fatalf("as_of_date expected 2026-03-31, got %s", resp.AsOfDate)
	}
	if len(resp.Queue) != 2 {
		t.Fatalf("expected 2 queue items, got %d", len(resp.Queue))
	}
	if resp.Queue[0].CustomerID != "C1" {
		t.Fatalf("expected the 45-day customer first, got %s", resp.Queue[0].CustomerID)
	}
}
