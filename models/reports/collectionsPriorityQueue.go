package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/utils"
)

// Recommended actions, most severe first. Selection follows the most
// severe non-empty bucket signal.
const (
	ActionCallAndEscalate = "Call + escalate if no response"
	ActionFollowUp        = "Follow up (call or firm email)"
	ActionSendReminder    = "Send reminder email / follow-up"
	ActionGentleReminder  = "Gentle reminder / monitor"
	ActionMonitor         = "Monitor"
)

// Priority score weights. Money impact uses a log scale so one huge
// balance does not flatten the rest of the queue.
const (
	priorityWeightRisk     = 0.50
	priorityWeightMoney    = 0.30
	priorityWeightAge      = 0.10
	priorityWeightSeverity = 0.10
)

// internalRiskPull is how many risk profiles the prioritizer requests
// before re-ranking; it pulls wide, then truncates to the caller's topN.
const internalRiskPull = 1000

type PriorityQueueItem struct {
	Rank              int             `json:"rank,omitempty"`
	CustomerID        string          `json:"customer_id"`
	CustomerName      string          `json:"customer_name"`
	PriorityScore     float64         `json:"priority_score"`
	RecommendedAction string          `json:"recommended_action"`
	OpenAR            decimal.Decimal `json:"open_ar"`
	OverdueAR         decimal.Decimal `json:"overdue_ar"`
	MaxDaysOverdue    int             `json:"max_days_overdue"`
	RiskScore         float64         `json:"risk_score"`
	RiskTier          string          `json:"risk_tier"`
	Reasons           []string        `json:"reasons"`
}

type CollectionsPriorityQueueResponse struct {
	AsOfDate string               `json:"as_of_date"`
	Queue    []*PriorityQueueItem `json:"queue"`
}

type CollectionsPriorityQueueParams struct {
	AsOfDate     time.Time
	LookbackDays int
	Limit        int
	TopN         int
}

// BuildCollectionsPriorityQueue re-ranks risk profiles into an
// action-annotated worklist:
//
//	priority_score = 0.50*risk_score + 0.30*money_impact
//	               + 0.10*age_score + 0.10*severity_boost
//
// money_impact is log10-normalized against the largest overdue balance in
// the set, and defined as 0 when that maximum is 0. The queue is sorted by
// priority descending (stable over the incoming risk order) and ranks 1..N
// are assigned to the surviving slice only.
func BuildCollectionsPriorityQueue(profiles []*CustomerRiskProfile, topN int) []*PriorityQueueItem {
	if topN <= 0 {
		topN = 50
	}

	maxOverdue := 0.0
	for _, p := range profiles {
		if v := p.OverdueAR.InexactFloat64(); v > maxOverdue {
			maxOverdue = v
		}
	}

	queue := make([]*PriorityQueueItem, 0, len(profiles))
	for _, p := range profiles {
		overdueAR := p.OverdueAR.InexactFloat64()
		maxDays := p.DaysOverdue.Max
		cnt0To10 := p.AgingBuckets.Overdue0To10.Count
		cnt11To20 := p.AgingBuckets.Overdue11To20.Count
		cnt21To30 := p.AgingBuckets.Overdue21To30.Count
		cnt31Plus := p.AgingBuckets.Overdue31Plus.Count

		moneyImpact := 0.0
		if maxOverdue > 0 {
			moneyImpact = math.Log10(overdueAR+1) / math.Log10(maxOverdue+1)
		}
		ageScore := math.Min(float64(maxDays)/scoreAgeCapDays, 1.0)
		weighted := 1.0*float64(cnt31Plus) + 0.7*float64(cnt21To30) + 0.4*float64(cnt11To20) + 0.2*float64(cnt0To10)
		severityBoost := math.Min(weighted/severityCountDivisor, 1.0)

		priorityScore := priorityWeightRisk*p.RiskScore +
			priorityWeightMoney*moneyImpact +
			priorityWeightAge*ageScore +
			priorityWeightSeverity*severityBoost

		queue = append(queue, &PriorityQueueItem{
			CustomerID:        p.CustomerID,
			CustomerName:      p.CustomerName,
			PriorityScore:     utils.Round3(priorityScore),
			RecommendedAction: recommendedAction(p),
			OpenAR:            p.OpenAR,
			OverdueAR:         p.OverdueAR,
			MaxDaysOverdue:    maxDays,
			RiskScore:         p.RiskScore,
			RiskTier:          p.RiskTier,
			Reasons:           priorityReasons(p),
		})
	}

	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].PriorityScore > queue[j].PriorityScore
	})
	if len(queue) > topN {
		queue = queue[:topN]
	}
	for i, item := range queue {
		item.Rank = i + 1
	}
	return queue
}

// recommendedAction picks the contact action from the most severe
// non-empty bucket signal, falling back through the ladder.
func recommendedAction(p *CustomerRiskProfile) string {
	maxDays := p.DaysOverdue.Max
	switch {
	case p.AgingBuckets.Overdue31Plus.Count >= 1 || maxDays >= 31:
		return ActionCallAndEscalate
	case p.AgingBuckets.Overdue21To30.Count >= 1 || maxDays >= 21:
		return ActionFollowUp
	case p.AgingBuckets.Overdue11To20.Count >= 1 || maxDays >= 11:
		return ActionSendReminder
	case p.AgingBuckets.Overdue0To10.Count >= 1:
		return ActionGentleReminder
	default:
		return ActionMonitor
	}
}

// priorityReasons builds the worklist explanation in fixed order: overdue
// amount, oldest overdue age, then exactly one bucket-count sentence for
// the most severe non-zero bucket, then the underlying risk score/tier.
func priorityReasons(p *CustomerRiskProfile) []string {
	var reasons []string
	if p.OverdueAR.IsPositive() {
		reasons = append(reasons, fmt.Sprintf("$%s overdue", p.OverdueAR.Round(2).String()))
	}
	if p.DaysOverdue.Max > 0 {
		reasons = append(reasons, fmt.Sprintf("Oldest overdue %d days", p.DaysOverdue.Max))
	}
	switch {
	case p.AgingBuckets.Overdue31Plus.Count > 0:
		reasons = append(reasons, fmt.Sprintf("%d invoice(s) 31+ days overdue", p.AgingBuckets.Overdue31Plus.Count))
	case p.AgingBuckets.Overdue21To30.Count > 0:
		reasons = append(reasons, fmt.Sprintf("%d invoice(s) 21–30 days overdue", p.AgingBuckets.Overdue21To30.Count))
	case p.AgingBuckets.Overdue11To20.Count > 0:
		reasons = append(reasons, fmt.Sprintf("%d invoice(s) 11–20 days overdue", p.AgingBuckets.Overdue11To20.Count))
	case p.AgingBuckets.Overdue0To10.Count > 0:
		reasons = append(reasons, fmt.Sprintf("%d invoice(s) 0–10 days overdue", p.AgingBuckets.Overdue0To10.Count))
	}
	reasons = append(reasons, fmt.Sprintf("Risk score %s (%s)",
		strconv.FormatFloat(p.RiskScore, 'f', -1, 64), p.RiskTier))
	return reasons
}

// GetCollectionsPriorityQueue fetches one snapshot, scores the full
// customer set (internal wide pull) and re-ranks it into the worklist.
func GetCollectionsPriorityQueue(ctx context.Context, feed models.InvoiceFeed, params CollectionsPriorityQueueParams) (*CollectionsPriorityQueueResponse, error) {
	asOf := defaultAsOf(params.AsOfDate)
	records, err := models.GetOpenInvoiceRecords(ctx, feed, asOf, params.LookbackDays, params.Limit)
	if err != nil {
		return nil, err
	}
	profiles := BuildCustomerRiskProfiles(records, asOf, decimal.Zero, internalRiskPull)
	return &CollectionsPriorityQueueResponse{
		AsOfDate: asOf.Format("2006-01-02"),
		Queue:    BuildCollectionsPriorityQueue(profiles, params.TopN),
	}, nil
}
