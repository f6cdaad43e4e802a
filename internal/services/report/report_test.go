package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pocketmoney/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleResult() *models.AnalyticsResult {
	return &models.AnalyticsResult{
		Period: models.PeriodWeek,
		Interval: models.Interval{
			Start: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 6, 23, 59, 59, 999000000, time.UTC),
		},
		Snapshot: models.AnalyticsSnapshot{
			TotalRevenue:      dec("150"),
			TotalExpenses:     dec("30"),
			NetProfit:         dec("120"),
			ProfitMargin:      80.0,
			RevenueChangePct:  "0%",
			ExpensesChangePct: "0%",
			ProfitChangePct:   "0%",
		},
		Categories: []models.CategoryShare{
			{Name: "Rent", Amount: dec("30"), Percentage: 100},
		},
		Customers: []models.CustomerRanking{
			{Name: "Aina", OrderCount: 2, TotalSpent: dec("150")},
		},
		Buckets: []models.DailyBucket{
			{Label: "Sun", Income: dec("0"), Expense: dec("0")},
			{Label: "Mon", Income: dec("100"), Expense: dec("30")},
		},
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "RM 0.00"},
		{"1234.5", "RM 1234.50"},
		{"-150", "RM -150.00"},
		{"0.005", "RM 0.01"},
	}

	for _, tt := range tests {
		if got := Currency(dec(tt.amount)); got != tt.want {
			t.Errorf("Currency(%s) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	f := New("Kedai Maju")
	out := f.Format(sampleResult())

	for _, want := range []string{
		"Kedai Maju — weekly report",
		"31 Dec 2023 to 6 Jan 2024",
		"Revenue:  RM 150.00 (0%)",
		"Expenses: RM 30.00 (0%)",
		"Profit:   RM 120.00 (0%)",
		"Margin:   80.0%",
		"Top expenses",
		"RM 30.00 (100%)",
		"Top customers",
		"RM 150.00 (2 orders)",
		"Daily",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\nreport:\n%s", want, out)
		}
	}
}

func TestFormatDefaultsBusinessName(t *testing.T) {
	out := New("").Format(sampleResult())
	if !strings.HasPrefix(out, "PocketMoney") {
		t.Errorf("expected default business name, got %q", out[:20])
	}
}

func TestFormatSkippedRecords(t *testing.T) {
	result := sampleResult()
	result.Skipped = 3

	out := New("x").Format(result)
	if !strings.Contains(out, "3 malformed record(s) excluded") {
		t.Errorf("report missing skipped record notice:\n%s", out)
	}
}
