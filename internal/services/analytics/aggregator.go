// Package analytics computes period-based aggregations over monetary records:
// totals, period-over-period deltas, daily chart buckets and top-N rankings.
// All functions are pure; "now" is always an explicit parameter.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pocketmoney/internal/models"
)

// Service provides analytics aggregation. It holds no state and is safe for
// concurrent use.
type Service struct{}

// New creates a new analytics service
func New() *Service {
	return &Service{}
}

// ResolvePeriod resolves a reporting period to a concrete interval anchored
// to now in now's location. Day covers midnight to 23:59:59.999 of the same
// day, Week runs Sunday through Saturday, Month covers the calendar month.
func (s *Service) ResolvePeriod(period models.ReportPeriod, now time.Time) models.Interval {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var start, next time.Time
	switch period {
	case models.PeriodDay:
		start = midnight
		next = start.AddDate(0, 0, 1)
	case models.PeriodWeek:
		start = midnight.AddDate(0, 0, -int(midnight.Weekday()))
		next = start.AddDate(0, 0, 7)
	default: // month
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		next = start.AddDate(0, 1, 0)
	}

	return models.Interval{Start: start, End: next.Add(-time.Millisecond)}
}

// Previous returns the interval of identical duration immediately preceding
// iv, ending just before iv.Start and never overlapping it.
func (s *Service) Previous(iv models.Interval) models.Interval {
	end := iv.Start.Add(-time.Millisecond)
	return models.Interval{Start: end.Add(-iv.Duration()), End: end}
}

// AggregateTotals sums record amounts falling inside the interval, split by
// kind. Records exactly at iv.End are included.
func (s *Service) AggregateTotals(rs *models.RecordSet, iv models.Interval) (revenue, expenses decimal.Decimal) {
	inRange := rs.FilterByInterval(iv)
	revenue = inRange.FilterByKind(models.Revenue).SumAmount()
	expenses = inRange.FilterByKind(models.Expense).SumAmount()
	return revenue, expenses
}

// ChangePct formats the relative change of current versus previous as a
// percentage string with an explicit sign, one decimal place. A zero previous
// value yields "0%" rather than a division error or an infinity. The change
// is measured against the magnitude of previous so a prior-period loss still
// reports an improvement with a "+" sign.
func (s *Service) ChangePct(current, previous decimal.Decimal) string {
	if previous.IsZero() {
		return "0%"
	}
	pct := current.Sub(previous).Div(previous.Abs()).Mul(decimal.NewFromInt(100))
	if current.GreaterThanOrEqual(previous) {
		return "+" + pct.StringFixed(1) + "%"
	}
	return pct.StringFixed(1) + "%"
}

// ProfitMargin returns net profit over revenue as a percentage. Zero revenue
// resolves to 0 regardless of expenses; negative margins pass through.
func (s *Service) ProfitMargin(netProfit, revenue decimal.Decimal) float64 {
	if revenue.IsZero() {
		return 0
	}
	return netProfit.Div(revenue).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// BucketByDay produces one bucket per calendar day from iv.Start through
// iv.End inclusive. Days without records yield zero sums so the sequence
// stays contiguous for charting.
func (s *Service) BucketByDay(rs *models.RecordSet, iv models.Interval) []models.DailyBucket {
	byDay := rs.FilterByInterval(iv).GroupByDay()
	shortLabels := iv.Days() <= 7

	var buckets []models.DailyBucket
	start := time.Date(iv.Start.Year(), iv.Start.Month(), iv.Start.Day(), 0, 0, 0, 0, iv.Start.Location())
	for d := start; !d.After(iv.End); d = d.AddDate(0, 0, 1) {
		income := decimal.Zero
		expense := decimal.Zero
		if day, ok := byDay[d.Format("2006-01-02")]; ok {
			income = day.FilterByKind(models.Revenue).SumAmount()
			expense = day.FilterByKind(models.Expense).SumAmount()
		}

		label := d.Format("Jan 2")
		if shortLabels {
			label = d.Format("Mon")
		}

		buckets = append(buckets, models.DailyBucket{
			Label:   label,
			Date:    d,
			Income:  income,
			Expense: expense,
		})
	}
	return buckets
}

// RankCategories groups expense records by category ("Other" when absent),
// computes each group's share of the grouped total and returns the top 5 by
// amount descending. Ties keep first-encountered order.
func (s *Service) RankCategories(expenses *models.RecordSet) []models.CategoryShare {
	type group struct {
		name   string
		amount decimal.Decimal
		order  int
	}

	groups := make(map[string]*group)
	total := decimal.Zero
	next := 0

	for _, r := range expenses.Records {
		name := r.Category
		if name == "" {
			name = "Other"
		}
		g, ok := groups[name]
		if !ok {
			g = &group{name: name, amount: decimal.Zero, order: next}
			groups[name] = g
			next++
		}
		g.amount = g.amount.Add(r.Amount)
		total = total.Add(r.Amount)
	}

	sorted := make([]*group, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].amount.Equal(sorted[j].amount) {
			return sorted[i].amount.GreaterThan(sorted[j].amount)
		}
		return sorted[i].order < sorted[j].order
	})

	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	hundred := decimal.NewFromInt(100)
	shares := make([]models.CategoryShare, 0, len(sorted))
	for _, g := range sorted {
		pct := 0
		if !total.IsZero() {
			pct = int(g.amount.Div(total).Mul(hundred).Round(0).IntPart())
		}
		shares = append(shares, models.CategoryShare{
			Name:       g.name,
			Amount:     g.amount,
			Percentage: pct,
		})
	}
	return shares
}

// RankCustomers groups revenue records by customer name, summing spend and
// counting orders, and returns the top 5 by total spent descending. Records
// without a customer reference are excluded rather than bucketed.
func (s *Service) RankCustomers(revenue *models.RecordSet) []models.CustomerRanking {
	type group struct {
		name  string
		count int
		spent decimal.Decimal
		order int
	}

	groups := make(map[string]*group)
	next := 0

	for _, r := range revenue.Records {
		if r.Customer == "" {
			continue
		}
		g, ok := groups[r.Customer]
		if !ok {
			g = &group{name: r.Customer, spent: decimal.Zero, order: next}
			groups[r.Customer] = g
			next++
		}
		g.count++
		g.spent = g.spent.Add(r.Amount)
	}

	sorted := make([]*group, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].spent.Equal(sorted[j].spent) {
			return sorted[i].spent.GreaterThan(sorted[j].spent)
		}
		return sorted[i].order < sorted[j].order
	})

	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	rankings := make([]models.CustomerRanking, 0, len(sorted))
	for _, g := range sorted {
		rankings = append(rankings, models.CustomerRanking{
			Name:       g.name,
			OrderCount: g.count,
			TotalSpent: g.spent,
		})
	}
	return rankings
}

// Aggregate runs the whole pipeline for one period query: resolve the
// interval, roll up totals for the current and preceding periods, compute
// deltas, bucket the time series and rank categories and customers. Malformed
// records are excluded and counted, never fatal.
func (s *Service) Aggregate(records []models.MonetaryRecord, period models.ReportPeriod, now time.Time) *models.AnalyticsResult {
	valid, skipped := models.NewRecordSet(records).FilterValid()

	iv := s.ResolvePeriod(period, now)
	prev := s.Previous(iv)

	revenue, expenses := s.AggregateTotals(valid, iv)
	prevRevenue, prevExpenses := s.AggregateTotals(valid, prev)

	netProfit := revenue.Sub(expenses)
	prevProfit := prevRevenue.Sub(prevExpenses)

	inRange := valid.FilterByInterval(iv)

	return &models.AnalyticsResult{
		Period:   period,
		Interval: iv,
		Snapshot: models.AnalyticsSnapshot{
			TotalRevenue:      revenue,
			TotalExpenses:     expenses,
			NetProfit:         netProfit,
			ProfitMargin:      s.ProfitMargin(netProfit, revenue),
			RevenueChangePct:  s.ChangePct(revenue, prevRevenue),
			ExpensesChangePct: s.ChangePct(expenses, prevExpenses),
			ProfitChangePct:   s.ChangePct(netProfit, prevProfit),
		},
		Buckets:    s.BucketByDay(valid, iv),
		Categories: s.RankCategories(inRange.FilterByKind(models.Expense)),
		Customers:  s.RankCustomers(inRange.FilterByKind(models.Revenue)),
		Skipped:    skipped,
	}
}
