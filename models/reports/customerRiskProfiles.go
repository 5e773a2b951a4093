package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/utils"
)

// Risk tiers. Boundaries are inclusive on the lower bound of each tier.
const (
	RiskTierHigh   = "High"
	RiskTierMedium = "Medium"
	RiskTierLow    = "Low"
)

// Composite risk score weights. Age normalizes against 60 days; severity
// normalizes the weighted overdue-invoice count against 3 so a large
// invoice count cannot dominate the score.
const (
	riskWeightRatio    = 0.50
	riskWeightAge      = 0.30
	riskWeightSeverity = 0.20

	scoreAgeCapDays      = 60.0
	severityCountDivisor = 3.0
)

// Driver thresholds. Drivers explain the score; they do not feed it.
var driverOverdueExposureMin = decimal.NewFromInt(1000)

type RiskBucket struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type RiskAgingBuckets struct {
	Overdue0To10  RiskBucket `json:"overdue_0_10"`
	Overdue11To20 RiskBucket `json:"overdue_11_20"`
	Overdue21To30 RiskBucket `json:"overdue_21_30"`
	Overdue31Plus RiskBucket `json:"overdue_31_plus"`
}

type RiskInvoiceCounts struct {
	Open    int `json:"open"`
	Overdue int `json:"overdue"`
}

type RiskDaysOverdue struct {
	Avg int `json:"avg"`
	Max int `json:"max"`
}

type CustomerRiskProfile struct {
	CustomerID    string            `json:"customer_id"`
	CustomerName  string            `json:"customer_name"`
	RiskScore     float64           `json:"risk_score"`
	RiskTier      string            `json:"risk_tier"`
	OpenAR        decimal.Decimal   `json:"open_ar"`
	OverdueAR     decimal.Decimal   `json:"overdue_ar"`
	OverdueRatio  float64           `json:"overdue_ratio"`
	AgingBuckets  RiskAgingBuckets  `json:"aging_buckets"`
	InvoiceCounts RiskInvoiceCounts `json:"invoice_counts"`
	DaysOverdue   RiskDaysOverdue   `json:"days_overdue"`
	Drivers       []string          `json:"drivers"`
}

type CustomerRiskProfilesResponse struct {
	AsOfDate  string                 `json:"as_of_date"`
	Customers []*CustomerRiskProfile `json:"customers"`
}

type CustomerRiskProfilesParams struct {
	AsOfDate       time.Time
	LookbackDays   int
	Limit          int
	MinOpenBalance decimal.Decimal
	TopN           int
}

// customerAgg is the fixed per-customer accumulator. Every field is
// named; nothing is keyed dynamically.
type customerAgg struct {
	customerName   string
	openAR         decimal.Decimal
	overdueAR      decimal.Decimal
	openCount      int
	overdueCount   int
	maxDaysOverdue int
	sumDaysOverdue int

	cnt0To10  int
	cnt11To20 int
	cnt21To30 int
	cnt31Plus int

	amt0To10  decimal.Decimal
	amt11To20 decimal.Decimal
	amt21To30 decimal.Decimal
	amt31Plus decimal.Decimal
}

// BuildCustomerRiskProfiles aggregates the snapshot per customer and
// scores each one:
//
//	risk_score = 0.50*overdue_ratio + 0.30*min(max_days/60, 1)
//	           + 0.20*min(weighted_bucket_count/3, 1)
//
// The score depends only on the customer's own aggregates, so adding or
// removing other customers never moves it. Customers whose open balance
// is below minOpenBalance are excluded entirely. The result is sorted by
// score descending (stable over first-seen input order) and truncated to
// topN.
func BuildCustomerRiskProfiles(records []models.InvoiceRecord, asOf time.Time, minOpenBalance decimal.Decimal, topN int) []*CustomerRiskProfile {
	if topN <= 0 {
		topN = 25
	}

	usable, _ := models.UsableInvoices(records)

	byCustomer := make(map[string]*customerAgg)
	customerOrder := make([]string, 0)

	for _, r := range usable {
		agg, ok := byCustomer[r.CustomerID]
		if !ok {
			agg = &customerAgg{}
			byCustomer[r.CustomerID] = agg
			customerOrder = append(customerOrder, r.CustomerID)
		}
		agg.customerName = r.CustomerName
		agg.openAR = agg.openAR.Add(r.UnpaidAmount)
		agg.openCount++

		days := models.DaysOverdue(asOf, *r.DueDate)
		if days <= 0 {
			continue
		}
		agg.overdueAR = agg.overdueAR.Add(r.UnpaidAmount)
		agg.overdueCount++
		agg.sumDaysOverdue += days
		if days > agg.maxDaysOverdue {
			agg.maxDaysOverdue = days
		}
		switch {
		case days <= 10:
			agg.cnt0To10++
			agg.amt0To10 = agg.amt0To10.Add(r.UnpaidAmount)
		case days <= 20:
			agg.cnt11To20++
			agg.amt11To20 = agg.amt11To20.Add(r.UnpaidAmount)
		case days <= 30:
			agg.cnt21To30++
			agg.amt21To30 = agg.amt21To30.Add(r.UnpaidAmount)
		default:
			agg.cnt31Plus++
			agg.amt31Plus = agg.amt31Plus.Add(r.UnpaidAmount)
		}
	}

	profiles := make([]*CustomerRiskProfile, 0, len(customerOrder))
	for _, cid := range customerOrder {
		agg := byCustomer[cid]
		if agg.openAR.LessThan(minOpenBalance) {
			continue
		}

		overdueRatio := 0.0
		if agg.openAR.IsPositive() {
			overdueRatio = agg.overdueAR.Div(agg.openAR).InexactFloat64()
		}

		scoreRatio := utils.Clamp01(overdueRatio)
		scoreAge := math.Min(float64(agg.maxDaysOverdue)/scoreAgeCapDays, 1.0)
		weighted := 0.25*float64(agg.cnt0To10) +
			0.50*float64(agg.cnt11To20) +
			0.75*float64(agg.cnt21To30) +
			1.00*float64(agg.cnt31Plus)
		scoreSeverity := math.Min(weighted/severityCountDivisor, 1.0)

		riskScore := riskWeightRatio*scoreRatio + riskWeightAge*scoreAge + riskWeightSeverity*scoreSeverity

		tier := RiskTierLow
		if riskScore >= 0.75 {
			tier = RiskTierHigh
		} else if riskScore >= 0.50 {
			tier = RiskTierMedium
		}

		avgDays := 0
		if agg.overdueCount > 0 {
			avgDays = agg.sumDaysOverdue / agg.overdueCount
		}

		profiles = append(profiles, &CustomerRiskProfile{
			CustomerID:   cid,
			CustomerName: agg.customerName,
			RiskScore:    utils.Round3(riskScore),
			RiskTier:     tier,
			OpenAR:       agg.openAR.Round(2),
			OverdueAR:    agg.overdueAR.Round(2),
			OverdueRatio: utils.Round3(overdueRatio),
			AgingBuckets: RiskAgingBuckets{
				Overdue0To10:  RiskBucket{Count: agg.cnt0To10, Amount: agg.amt0To10.Round(2)},
				Overdue11To20: RiskBucket{Count: agg.cnt11To20, Amount: agg.amt11To20.Round(2)},
				Overdue21To30: RiskBucket{Count: agg.cnt21To30, Amount: agg.amt21To30.Round(2)},
				Overdue31Plus: RiskBucket{Count: agg.cnt31Plus, Amount: agg.amt31Plus.Round(2)},
			},
			InvoiceCounts: RiskInvoiceCounts{Open: agg.openCount, Overdue: agg.overdueCount},
			DaysOverdue:   RiskDaysOverdue{Avg: avgDays, Max: agg.maxDaysOverdue},
			Drivers:       riskDrivers(agg, overdueRatio),
		})
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].RiskScore > profiles[j].RiskScore
	})
	if len(profiles) > topN {
		profiles = profiles[:topN]
	}
	return profiles
}

// riskDrivers builds the human-readable explanation list. Each threshold
// that fires appends one sentence, in fixed order; if none fire a single
// fallback sentence is emitted.
func riskDrivers(agg *customerAgg, overdueRatio float64) []string {
	var drivers []string
	if overdueRatio >= 0.7 {
		drivers = append(drivers, fmt.Sprintf("Overdue ratio is %d%%", int(math.Round(overdueRatio*100))))
	}
	if agg.maxDaysOverdue >= 21 {
		drivers = append(drivers, fmt.Sprintf("Oldest overdue is %d days", agg.maxDaysOverdue))
	}
	if agg.cnt31Plus >= 1 {
		drivers = append(drivers, fmt.Sprintf("%d invoice(s) are 31+ days overdue", agg.cnt31Plus))
	}
	if agg.cnt21To30 >= 2 {
		drivers = append(drivers, fmt.Sprintf("Multiple invoices are 21–30 days overdue (%d)", agg.cnt21To30))
	}
	if agg.overdueAR.GreaterThanOrEqual(driverOverdueExposureMin) {
		drivers = append(drivers, fmt.Sprintf("Overdue exposure is $%s", agg.overdueAR.Round(2).String()))
	}
	if len(drivers) == 0 {
		drivers = []string{"No major risk signals (mostly current or mildly overdue)"}
	}
	return drivers
}

// GetCustomerRiskProfiles fetches one snapshot and scores every customer
// at or above the minimum open balance.
func GetCustomerRiskProfiles(ctx context.Context, feed models.InvoiceFeed, params CustomerRiskProfilesParams) (*CustomerRiskProfilesResponse, error) {
	asOf := defaultAsOf(params.AsOfDate)
	records, err := models.GetOpenInvoiceRecords(ctx, feed, asOf, params.LookbackDays, params.Limit)
	if err != nil {
		return nil, err
	}
	return &CustomerRiskProfilesResponse{
		AsOfDate:  asOf.Format("2006-01-02"),
		Customers: BuildCustomerRiskProfiles(records, asOf, params.MinOpenBalance, params.TopN),
	}, nil
}
