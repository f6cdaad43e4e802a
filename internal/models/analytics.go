package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnalyticsSnapshot contains the derived totals and ratios for one period.
// It is recomputed from scratch on every query and never mutated.
type AnalyticsSnapshot struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	// ProfitMargin is NetProfit/TotalRevenue as a percentage; 0 when there is
	// no revenue. Negative margins are valid.
	ProfitMargin float64 `json:"profit_margin"`

	// Change percentages versus the immediately preceding equal-length
	// period, formatted with an explicit sign ("+12.5%"). "0%" when the
	// previous period's total is zero.
	RevenueChangePct  string `json:"revenue_change_pct"`
	ExpensesChangePct string `json:"expenses_change_pct"`
	ProfitChangePct   string `json:"profit_change_pct"`
}

// DailyBucket holds one calendar day's income/expense totals within a period
type DailyBucket struct {
	Label   string          `json:"label"`
	Date    time.Time       `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategoryShare represents one expense category's share of the grouped total
type CategoryShare struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage int             `json:"percentage"`
}

// CustomerRanking represents one customer's aggregated revenue
type CustomerRanking struct {
	Name       string          `json:"name"`
	OrderCount int             `json:"order_count"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// AnalyticsResult bundles everything derived for one period query
type AnalyticsResult struct {
	Period     ReportPeriod      `json:"period"`
	Interval   Interval          `json:"interval"`
	Snapshot   AnalyticsSnapshot `json:"snapshot"`
	Buckets    []DailyBucket     `json:"buckets"`
	Categories []CategoryShare   `json:"categories"`
	Customers  []CustomerRanking `json:"customers"`
	// Skipped counts malformed records excluded from the aggregation
	Skipped int `json:"skipped_records"`
}

// FileInfo represents metadata about a record CSV file in the data directory
type FileInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Records int    `json:"records"`
	MinDate string `json:"min_date"`
	MaxDate string `json:"max_date"`
}
