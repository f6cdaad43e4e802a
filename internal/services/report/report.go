// Package report serializes analytics results into a shareable plain-text
// summary. Currency values are formatted as "RM {amount}" with two decimals,
// percentages with one.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pocketmoney/internal/models"
)

// Formatter renders analytics results as text
type Formatter struct {
	BusinessName string
}

// New creates a formatter for the given business name
func New(businessName string) *Formatter {
	if businessName == "" {
		businessName = "PocketMoney"
	}
	return &Formatter{BusinessName: businessName}
}

// Format renders the full multi-line report for one analytics result
func (f *Formatter) Format(result *models.AnalyticsResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s — %s report\n", f.BusinessName, periodTitle(result.Period))
	fmt.Fprintf(&b, "%s to %s\n\n",
		result.Interval.Start.Format("2 Jan 2006"),
		result.Interval.End.Format("2 Jan 2006"))

	snap := result.Snapshot
	fmt.Fprintf(&b, "Revenue:  %s (%s)\n", Currency(snap.TotalRevenue), snap.RevenueChangePct)
	fmt.Fprintf(&b, "Expenses: %s (%s)\n", Currency(snap.TotalExpenses), snap.ExpensesChangePct)
	fmt.Fprintf(&b, "Profit:   %s (%s)\n", Currency(snap.NetProfit), snap.ProfitChangePct)
	fmt.Fprintf(&b, "Margin:   %.1f%%\n", snap.ProfitMargin)

	if result.Skipped > 0 {
		fmt.Fprintf(&b, "\n%d malformed record(s) excluded\n", result.Skipped)
	}

	if len(result.Categories) > 0 {
		b.WriteString("\nTop expenses\n")
		for _, c := range result.Categories {
			fmt.Fprintf(&b, "  %-16s %s (%d%%)\n", c.Name, Currency(c.Amount), c.Percentage)
		}
	}

	if len(result.Customers) > 0 {
		b.WriteString("\nTop customers\n")
		for _, c := range result.Customers {
			fmt.Fprintf(&b, "  %-16s %s (%d orders)\n", c.Name, Currency(c.TotalSpent), c.OrderCount)
		}
	}

	if len(result.Buckets) > 0 {
		b.WriteString("\nDaily\n")
		for _, bucket := range result.Buckets {
			fmt.Fprintf(&b, "  %-8s in %s  out %s\n",
				bucket.Label, Currency(bucket.Income), Currency(bucket.Expense))
		}
	}

	return b.String()
}

// Currency formats a monetary amount as "RM 123.45"
func Currency(amount decimal.Decimal) string {
	return "RM " + amount.StringFixed(2)
}

func periodTitle(period models.ReportPeriod) string {
	switch period {
	case models.PeriodDay:
		return "daily"
	case models.PeriodWeek:
		return "weekly"
	default:
		return "monthly"
	}
}
