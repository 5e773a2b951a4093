package reports_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models/reports"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/utils"
)

func TestToneForDays_Ladder(t *testing.T) {
	cases := []struct {
		days     int
		expected reports.EmailTone
	}{
		{0, reports.ToneGentle},
		{10, reports.ToneGentle},
		{11, reports.ToneReminder},
		{20, reports.ToneReminder},
		{21, reports.ToneFirm},
		{30, reports.ToneFirm},
		{31, reports.ToneEscalation},
		{120, reports.ToneEscalation},
	}
	for _, tc := range cases {
		if got := reports.ToneForDays(tc.days); got != tc.expected {
			t.Fatalf("ToneForDays(%d) expected %s, got %s", tc.days, tc.expected, got)
		}
	}
}

func TestBuildCollectionsEmailDrafts_TemplateFields(t *testing.T) {
	queue := []*reports.PriorityQueueItem{{
		Rank:           1,
		CustomerID:     "C1",
		CustomerName:   "Acme Corp",
		MaxDaysOverdue: 45,
		OverdueAR:      decimal.NewFromFloat(1234.5),
		Reasons:        []string{"$1234.50 overdue", "Oldest overdue 45 days", "Risk score 0.792 (High)"},
	}}
	drafts := reports.BuildCollectionsEmailDrafts(queue, "Jordan", "Initrode")

	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	d := drafts[0]
	if d.Tone != reports.ToneEscalation {
		t.Fatalf("45 days expected escalation tone, got %s", d.Tone)
	}
	if d.Subject != "Urgent: past due balance — please respond" {
		t.Fatalf("unexpected subject %q", d.Subject)
	}
	for _, want := range []string{"Hi Acme Corp,", "$1,234.50", "Jordan", "Initrode"} {
		if !strings.Contains(d.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, d.Body)
		}
	}
	// Internal note carries only the first two reasons.
	if !strings.Contains(d.Body, "(Internal note: $1234.50 overdue; Oldest overdue 45 days)") {
		t.Fatalf("internal note wrong:\n%s", d.Body)
	}
	if strings.Contains(d.Body, "Risk score") {
		t.Fatalf("internal note leaked a third reason:\n%s", d.Body)
	}
}

func TestBuildCollectionsEmailDrafts_Defaults(t *testing.T) {
	queue := []*reports.PriorityQueueItem{{
		Rank:           1,
		CustomerID:     "C1",
		CustomerName:   "",
		MaxDaysOverdue: 5,
		OverdueAR:      decimal.NewFromInt(80),
	}}
	drafts := reports.BuildCollectionsEmailDrafts(queue, "", "  ")

	d := drafts[0]
	if d.CustomerName != "Customer" {
		t.Fatalf("blank customer name should fall back to Customer, got %q", d.CustomerName)
	}
	if !strings.Contains(d.Body, reports.DefaultSenderName) || !strings.Contains(d.Body, reports.DefaultCompanyName) {
		t.Fatalf("default signature missing:\n%s", d.Body)
	}
	if d.Tone != reports.ToneGentle {
		t.Fatalf("5 days expected gentle tone, got %s", d.Tone)
	}
	if strings.Contains(d.Body, "Internal note") {
		t.Fatalf("no reasons given, so no internal note expected:\n%s", d.Body)
	}
}

func TestGetDraftCollectionsEmails_NeverSends(t *testing.T) {
	feed := &recordFeed{rows: []models.OpenInvoiceRow{
		{TransactionID: "1", DueDate: "02/14/2026", CustomerID: "C1", CustomerName: "Acme", UnpaidAmount: decimal.NewFromInt(500)},
	}}
	resp, err := reports.GetDraftCollectionsEmails(context.Background(), feed, reports.DraftCollectionsEmailsParams{AsOfDate: testAsOf})
	if err != nil {
		t.Fatalf("GetDraftCollectionsEmails: %v", err)
	}
	if resp.Count != 1 || len(resp.Drafts) != 1 {
		t.Fatalf("expected a single draft, got count=%d len=%d", resp.Count, len(resp.Drafts))
	}
	if resp.Note != "Drafts only — no emails were sent." {
		t.Fatalf("unexpected note %q", resp.Note)
	}
}

type fakeMailer struct {
	sent    []string
	failOn  string
	lastErr error
}

func (m *fakeMailer) Send(recipient, subject, body string) error {
	if m.failOn != "" && strings.Contains(subject, m.failOn) {
		m.lastErr = errors.New("smtp: connection reset")
		return m.lastErr
	}
	m.sent = append(m.sent, recipient+" | "+subject)
	return nil
}

func overdueBookFeed() *recordFeed {
	return &recordFeed{rows: []models.OpenInvoiceRow{
		{TransactionID: "1", DueDate: "02/14/2026", CustomerID: "C1", CustomerName: "Acme", UnpaidAmount: decimal.NewFromInt(5000)},
		{TransactionID: "2", DueDate: "03/10/2026", CustomerID: "C2", CustomerName: "Globex", UnpaidAmount: decimal.NewFromInt(800)},
		{TransactionID: "3", DueDate: "03/25/2026", CustomerID: "C3", CustomerName: "Initech", UnpaidAmount: decimal.NewFromInt(200)},
	}}
}

func TestSendCollectionsEmails_DryRunByDefault(t *testing.T) {
	m := &fakeMailer{}
	resp, err := reports.SendCollectionsEmails(context.Background(), overdueBookFeed(), m, reports.SendCollectionsEmailsParams{
		DraftCollectionsEmailsParams: reports.DraftCollectionsEmailsParams{AsOfDate: testAsOf},
	})
	if err != nil {
		t.Fatalf("SendCollectionsEmails: %v", err)
	}
	if !resp.DryRun {
		t.Fatalf("dry_run should default to true")
	}
	if resp.Attempted != 0 || resp.Sent != 0 || len(m.sent) != 0 {
		t.Fatalf("dry run must not deliver anything: attempted=%d sent=%d delivered=%d", resp.Attempted, resp.Sent, len(m.sent))
	}
	for _, r := range resp.Results {
		if r.Status != "skipped (dry run)" {
			t.Fatalf("expected dry-run status, got %q", r.Status)
		}
	}
}

func TestSendCollectionsEmails_MaxSendCap(t *testing.T) {
	m := &fakeMailer{}
	dryRun := false
	resp, err := reports.SendCollectionsEmails(context.Background(), overdueBookFeed(), m, reports.SendCollectionsEmailsParams{
		DraftCollectionsEmailsParams: reports.DraftCollectionsEmailsParams{AsOfDate: testAsOf},
		DryRun:                       &dryRun,
		TestRecipient:                "ar-test@example.com",
		MaxSend:                      2,
	})
	if err != nil {
		t.Fatalf("SendCollectionsEmails: %v", err)
	}
	if resp.Attempted != 2 || resp.Sent != 2 {
		t.Fatalf("expected 2 attempted/sent, got %d/%d", resp.Attempted, resp.Sent)
	}
	if len(m.sent) != 2 {
		t.Fatalf("mailer should have delivered 2, got %d", len(m.sent))
	}
	if got := resp.Results[2].Status; got != "skipped (max_send reached)" {
		t.Fatalf("third result expected max_send skip, got %q", got)
	}
	for _, line := range m.sent {
		if !strings.HasPrefix(line, "ar-test@example.com | ") {
			t.Fatalf("every delivery must target the test recipient, got %q", line)
		}
	}
}

func TestSendCollectionsEmails_MailerFailureDoesNotAbort(t *testing.T) {
	// The highest priority customer gets the escalation subject; fail it.
	m := &fakeMailer{failOn: "Urgent"}
	dryRun := false
	resp, err := reports.SendCollectionsEmails(context.Background(), overdueBookFeed(), m, reports.SendCollectionsEmailsParams{
		DraftCollectionsEmailsParams: reports.DraftCollectionsEmailsParams{AsOfDate: testAsOf},
		DryRun:                       &dryRun,
		TestRecipient:                "ar-test@example.com",
		MaxSend:                      3,
	})
	if err != nil {
		t.Fatalf("SendCollectionsEmails: %v", err)
	}
	if resp.Failed != 1 {
		t.Fatalf("expected 1 failure, got %d", resp.Failed)
	}
	if resp.Sent != 2 {
		t.Fatalf("remaining sends should continue after a failure, got sent=%d", resp.Sent)
	}
	if resp.Results[0].Status != "failed" || resp.Results[0].Error == "" {
		t.Fatalf("first result should record the failure, got %+v", resp.Results[0])
	}
}

func TestSendCollectionsEmails_GuardRails(t *testing.T) {
	dryRun := false

	_, err := reports.SendCollectionsEmails(context.Background(), overdueBookFeed(), nil, reports.SendCollectionsEmailsParams{
		DraftCollectionsEmailsParams: reports.DraftCollectionsEmailsParams{AsOfDate: testAsOf},
		DryRun:                       &dryRun,
		TestRecipient:                "ar-test@example.com",
	})
	if !errors.Is(err, utils.ErrorMailerNotConfigured) {
		t.Fatalf("expected mailer-not-configured error, got %v", err)
	}

	_, err = reports.SendCollectionsEmails(context.Background(), overdueBookFeed(), &fakeMailer{}, reports.SendCollectionsEmailsParams{
		DraftCollectionsEmailsParams: reports.DraftCollectionsEmailsParams{AsOfDate: testAsOf},
		DryRun:                       &dryRun,
		TestRecipient:                "not-an-address",
	})
	if !errors.Is(err, utils.ErrorInvalidRecipient) {
		t.Fatalf("expected invalid-recipient error, got %v", err)
	}
}
