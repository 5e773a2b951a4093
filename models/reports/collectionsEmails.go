package reports

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/mailer"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/utils"
)

// EmailTone selects the subject and body template for a draft. The
// ladder mirrors the recommended-action thresholds: 0-10 gentle, 11-20
// reminder, 21-30 firm, 31+ escalation.
type EmailTone string

const (
	ToneGentle     EmailTone = "gentle"
	ToneReminder   EmailTone = "reminder"
	ToneFirm       EmailTone = "firm"
	ToneEscalation EmailTone = "escalation"
)

const (
	DefaultSenderName  = "Accounts Receivable Team"
	DefaultCompanyName = "Your Company"
)

var toneSubjects = map[EmailTone]string{
	ToneGentle:     "Friendly reminder: invoice payment due",
	ToneReminder:   "Reminder: outstanding balance - action requested",
	ToneFirm:       "Past due notice: outstanding balance requires attention",
	ToneEscalation: "Urgent: past due balance — please respond",
}

var toneBodies = map[EmailTone]string{
	ToneGentle: `Hi {{.CustomerName}},

Hope you're doing well. This is a friendly reminder that we have an outstanding balance of ${{.OverdueAmount}} on your account.

If payment has already been sent, please disregard this message. Otherwise, could you share an expected payment date?

Thank you,
{{.SenderName}}
{{.CompanyName}}`,
	ToneReminder: `Hi {{.CustomerName}},

This is a reminder that we have an outstanding balance of ${{.OverdueAmount}} that appears past due.

Could you please confirm the payment status and provide an expected payment date? If there are any issues with the invoice, let us know and we’ll help resolve them.

Thanks,
{{.SenderName}}
{{.CompanyName}}`,
	ToneFirm: `Hi {{.CustomerName}},

Our records show an outstanding past-due balance of ${{.OverdueAmount}}. Please treat this as a past due notice.

Please reply with a payment date or any details needed to resolve this promptly. If payment has already been initiated, share the remittance information.

Regards,
{{.SenderName}}
{{.CompanyName}}`,
	ToneEscalation: `Hi {{.CustomerName}},

We are following up urgently regarding a past-due balance of ${{.OverdueAmount}}.

Please respond today with the payment status and a confirmed payment date. If there is a dispute or issue preventing payment, notify us immediately so we can address it.

Regards,
{{.SenderName}}
{{.CompanyName}}`,
}

type EmailDraft struct {
	Rank              int             `json:"rank"`
	CustomerID        string          `json:"customer_id"`
	CustomerName      string          `json:"customer_name"`
	RecommendedAction string          `json:"recommended_action"`
	MaxDaysOverdue    int             `json:"max_days_overdue"`
	OverdueAR         decimal.Decimal `json:"overdue_ar"`
	Tone              EmailTone       `json:"tone"`
	Subject           string          `json:"subject"`
	Body              string          `json:"body"`
}

type DraftCollectionsEmailsResponse struct {
	AsOfDate string        `json:"as_of_date"`
	Count    int           `json:"count"`
	Drafts   []*EmailDraft `json:"drafts"`
	Note     string        `json:"note"`
}

type DraftCollectionsEmailsParams struct {
	AsOfDate     time.Time
	LookbackDays int
	Limit        int
	TopN         int
	SenderName   string
	CompanyName  string
}

// ToneForDays maps the oldest overdue age to a tone.
func ToneForDays(maxDaysOverdue int) EmailTone {
	switch {
	case maxDaysOverdue >= 31:
		return ToneEscalation
	case maxDaysOverdue >= 21:
		return ToneFirm
	case maxDaysOverdue >= 11:
		return ToneReminder
	default:
		return ToneGentle
	}
}

// BuildCollectionsEmailDrafts turns worklist items into templated drafts.
// Pure templating: no network I/O happens here, and delivery is never
// this function's job. The internal-note suffix carries the first two
// worklist reasons for the reviewer.
func BuildCollectionsEmailDrafts(queue []*PriorityQueueItem, senderName string, companyName string) []*EmailDraft {
	if strings.TrimSpace(senderName) == "" {
		senderName = DefaultSenderName
	}
	if strings.TrimSpace(companyName) == "" {
		companyName = DefaultCompanyName
	}

	drafts := make([]*EmailDraft, 0, len(queue))
	for _, item := range queue {
		customerName := item.CustomerName
		if customerName == "" {
			customerName = "Customer"
		}
		tone := ToneForDays(item.MaxDaysOverdue)

		body, err := utils.ExecTemplate(toneBodies[tone], map[string]interface{}{
			"CustomerName":  customerName,
			"OverdueAmount": utils.FormatMoney(item.OverdueAR),
			"SenderName":    senderName,
			"CompanyName":   companyName,
		})
		if err != nil {
			// Templates are package constants; a failure here is a
			// programming error, not a data problem.
			panic(err)
		}
		body = strings.TrimSpace(body)

		if len(item.Reasons) > 0 {
			trimmed := item.Reasons
			if len(trimmed) > 2 {
				trimmed = trimmed[:2]
			}
			body += "\n\n(Internal note: " + strings.Join(trimmed, "; ") + ")"
		}

		drafts = append(drafts, &EmailDraft{
			Rank:              item.Rank,
			CustomerID:        item.CustomerID,
			CustomerName:      customerName,
			RecommendedAction: item.RecommendedAction,
			MaxDaysOverdue:    item.MaxDaysOverdue,
			OverdueAR:         item.OverdueAR.Round(2),
			Tone:              tone,
			Subject:           toneSubjects[tone],
			Body:              body,
		})
	}
	return drafts
}

// GetDraftCollectionsEmails drafts outreach for the top-N customers in
// the collections priority queue. Safe: returns drafts only.
func GetDraftCollectionsEmails(ctx context.Context, feed models.InvoiceFeed, params DraftCollectionsEmailsParams) (*DraftCollectionsEmailsResponse, error) {
	asOf := defaultAsOf(params.AsOfDate)
	topN := params.TopN
	if topN <= 0 {
		topN = 10
	}
	queueResp, err := GetCollectionsPriorityQueue(ctx, feed, CollectionsPriorityQueueParams{
		AsOfDate:     asOf,
		LookbackDays: params.LookbackDays,
		Limit:        params.Limit,
		TopN:         topN,
	})
	if err != nil {
		return nil, err
	}
	drafts := BuildCollectionsEmailDrafts(queueResp.Queue, params.SenderName, params.CompanyName)
	return &DraftCollectionsEmailsResponse{
		AsOfDate: asOf.Format("2006-01-02"),
		Count:    len(drafts),
		Drafts:   drafts,
		Note:     "Drafts only — no emails were sent.",
	}, nil
}

type SendCollectionsEmailsParams struct {
	DraftCollectionsEmailsParams
	// DryRun defaults to true: a nil pointer means no send.
	DryRun *bool
	// TestRecipient receives every email. The feed carries no customer
	// email addresses, so a real send always targets this override.
	TestRecipient string
	// MaxSend caps how many drafts are actually delivered (default 1).
	MaxSend int
}

type EmailSendResult struct {
	Rank         int    `json:"rank"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Recipient    string `json:"recipient,omitempty"`
	Subject      string `json:"subject"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

type SendCollectionsEmailsResponse struct {
	AsOfDate  string             `json:"as_of_date"`
	DryRun    bool               `json:"dry_run"`
	Attempted int                `json:"attempted"`
	Sent      int                `json:"sent"`
	Failed    int                `json:"failed"`
	Results   []*EmailSendResult `json:"results"`
}

// SendCollectionsEmails drafts and then hands at most MaxSend drafts to
// the delivery collaborator. With DryRun (the default) nothing is sent
// and every result reports status "skipped (dry run)". A mailer failure
// for one draft is recorded and does not abort the remaining sends; a
// feed failure fails the whole call.
func SendCollectionsEmails(ctx context.Context, feed models.InvoiceFeed, m mailer.Mailer, params SendCollectionsEmailsParams) (*SendCollectionsEmailsResponse, error) {
	dryRun := true
	if params.DryRun != nil {
		dryRun = *params.DryRun
	}
	maxSend := params.MaxSend
	if maxSend <= 0 {
		maxSend = 1
	}

	if !dryRun {
		if m == nil {
			return nil, utils.ErrorMailerNotConfigured
		}
		if !utils.IsValidEmail(params.TestRecipient) {
			return nil, utils.ErrorInvalidRecipient
		}
	}

	draftsResp, err := GetDraftCollectionsEmails(ctx, feed, params.DraftCollectionsEmailsParams)
	if err != nil {
		return nil, err
	}

	resp := &SendCollectionsEmailsResponse{
		AsOfDate: draftsResp.AsOfDate,
		DryRun:   dryRun,
		Results:  make([]*EmailSendResult, 0, len(draftsResp.Drafts)),
	}

	for _, d := range draftsResp.Drafts {
		result := &EmailSendResult{
			Rank:         d.Rank,
			CustomerID:   d.CustomerID,
			CustomerName: d.CustomerName,
			Subject:      d.Subject,
		}
		switch {
		case dryRun:
			result.Status = "skipped (dry run)"
		case resp.Attempted >= maxSend:
			result.Status = "skipped (max_send reached)"
		default:
			resp.Attempted++
			result.Recipient = params.TestRecipient
			if sendErr := m.Send(params.TestRecipient, d.Subject, d.Body); sendErr != nil {
				resp.Failed++
				result.Status = "failed"
				result.Error = sendErr.Error()
			} else {
				resp.Sent++
				result.Status = "sent"
			}
		}
		resp.Results = append(resp.Results, result)
	}
	return resp, nil
}
