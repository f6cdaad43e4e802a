package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pocketmoney/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func revenue(amount string, at time.Time, customer string) models.MonetaryRecord {
	return models.MonetaryRecord{
		ID:         "r-" + amount,
		Amount:     dec(amount),
		OccurredAt: at,
		Kind:       models.Revenue,
		Customer:   customer,
	}
}

func expense(amount string, at time.Time, category string) models.MonetaryRecord {
	return models.MonetaryRecord{
		ID:         "e-" + amount,
		Amount:     dec(amount),
		OccurredAt: at,
		Kind:       models.Expense,
		Category:   category,
	}
}

func TestResolvePeriod(t *testing.T) {
	svc := New()
	// Wednesday, mid-afternoon
	now := time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		period    models.ReportPeriod
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			period:    models.PeriodDay,
			wantStart: day(2024, 1, 10),
			wantEnd:   time.Date(2024, 1, 10, 23, 59, 59, 999000000, time.UTC),
		},
		{
			// Week starts on the most recent Sunday
			period:    models.PeriodWeek,
			wantStart: day(2024, 1, 7),
			wantEnd:   time.Date(2024, 1, 13, 23, 59, 59, 999000000, time.UTC),
		},
		{
			period:    models.PeriodMonth,
			wantStart: day(2024, 1, 1),
			wantEnd:   time.Date(2024, 1, 31, 23, 59, 59, 999000000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			iv := svc.ResolvePeriod(tt.period, now)
			if !iv.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", iv.Start, tt.wantStart)
			}
			if !iv.End.Equal(tt.wantEnd) {
				t.Errorf("End = %v, want %v", iv.End, tt.wantEnd)
			}
			if !iv.Start.Before(iv.End) {
				t.Errorf("expected Start < End, got %v / %v", iv.Start, iv.End)
			}
		})
	}
}

func TestResolvePeriodWeekOnSunday(t *testing.T) {
	svc := New()
	// Already a Sunday: the week starts the same day
	now := time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC)

	iv := svc.ResolvePeriod(models.PeriodWeek, now)
	if !iv.Start.Equal(day(2024, 1, 7)) {
		t.Errorf("Start = %v, want Sunday Jan 7 midnight", iv.Start)
	}
	if iv.Days() != 7 {
		t.Errorf("Days() = %d, want 7", iv.Days())
	}
}

func TestPrevious(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	for _, period := range []models.ReportPeriod{models.PeriodDay, models.PeriodWeek, models.PeriodMonth} {
		t.Run(string(period), func(t *testing.T) {
			iv := svc.ResolvePeriod(period, now)
			prev := svc.Previous(iv)

			if prev.Duration() != iv.Duration() {
				t.Errorf("duration mismatch: prev %v, current %v", prev.Duration(), iv.Duration())
			}
			if !prev.End.Before(iv.Start) {
				t.Errorf("previous interval overlaps current: prev end %v, start %v", prev.End, iv.Start)
			}
			// Contiguous: nothing fits between prev.End and iv.Start
			if gap := iv.Start.Sub(prev.End); gap != time.Millisecond {
				t.Errorf("gap between periods = %v, want 1ms", gap)
			}
		})
	}
}

func TestChangePct(t *testing.T) {
	svc := New()

	tests := []struct {
		name     string
		current  string
		previous string
		want     string
	}{
		{"zero previous", "200", "0", "0%"},
		{"zero previous zero current", "0", "0", "0%"},
		{"increase", "150", "100", "+50.0%"},
		{"decrease", "50", "100", "-50.0%"},
		{"no change", "100", "100", "+0.0%"},
		{"fractional", "110", "80", "+37.5%"},
		{"negative previous", "-50", "-100", "+50.0%"},
		{"loss to profit", "50", "-100", "+150.0%"},
		{"deepening loss", "-150", "-100", "-50.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.ChangePct(dec(tt.current), dec(tt.previous))
			if got != tt.want {
				t.Errorf("ChangePct(%s, %s) = %q, want %q", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestProfitMargin(t *testing.T) {
	svc := New()

	tests := []struct {
		name    string
		profit  string
		revenue string
		want    float64
	}{
		{"zero revenue", "-30", "0", 0},
		{"spec scenario", "120", "150", 80.0},
		{"negative margin", "-50", "100", -50.0},
		{"full margin", "100", "100", 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.ProfitMargin(dec(tt.profit), dec(tt.revenue))
			if got != tt.want {
				t.Errorf("ProfitMargin(%s, %s) = %v, want %v", tt.profit, tt.revenue, got, tt.want)
			}
		})
	}
}

func TestBucketByDay(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	iv := svc.ResolvePeriod(models.PeriodWeek, now)

	records := models.NewRecordSet([]models.MonetaryRecord{
		revenue("100", day(2024, 1, 8), "Aina"),
		revenue("50", day(2024, 1, 9), "Ben"),
		expense("30", day(2024, 1, 8), "Rent"),
		// Outside the interval, must not appear
		revenue("999", day(2024, 1, 20), ""),
	})

	buckets := svc.BucketByDay(records, iv)

	if len(buckets) != 7 {
		t.Fatalf("got %d buckets for a week, want 7", len(buckets))
	}

	wantLabels := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	for i, b := range buckets {
		if b.Label != wantLabels[i] {
			t.Errorf("bucket %d label = %q, want %q", i, b.Label, wantLabels[i])
		}
	}

	// Monday carries both the 100 revenue and the 30 expense
	if !buckets[1].Income.Equal(dec("100")) || !buckets[1].Expense.Equal(dec("30")) {
		t.Errorf("Monday bucket = income %s / expense %s, want 100 / 30", buckets[1].Income, buckets[1].Expense)
	}

	// Empty days must be present with zero sums
	if !buckets[0].Income.IsZero() || !buckets[0].Expense.IsZero() {
		t.Errorf("Sunday bucket should be zero, got income %s expense %s", buckets[0].Income, buckets[0].Expense)
	}

	// Consistency law: bucket sums equal interval totals
	totalRevenue, totalExpenses := svc.AggregateTotals(records, iv)
	incomeSum, expenseSum := decimal.Zero, decimal.Zero
	for _, b := range buckets {
		incomeSum = incomeSum.Add(b.Income)
		expenseSum = expenseSum.Add(b.Expense)
	}
	if !incomeSum.Equal(totalRevenue) {
		t.Errorf("sum of bucket income %s != total revenue %s", incomeSum, totalRevenue)
	}
	if !expenseSum.Equal(totalExpenses) {
		t.Errorf("sum of bucket expense %s != total expenses %s", expenseSum, totalExpenses)
	}
}

func TestBucketByDayMonthLabels(t *testing.T) {
	svc := New()
	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)
	iv := svc.ResolvePeriod(models.PeriodMonth, now)

	buckets := svc.BucketByDay(models.NewRecordSet(nil), iv)
	if len(buckets) != 29 { // leap February
		t.Fatalf("got %d buckets for Feb 2024, want 29", len(buckets))
	}
	if buckets[0].Label != "Feb 1" {
		t.Errorf("first label = %q, want %q", buckets[0].Label, "Feb 1")
	}
}

func TestRankCategories(t *testing.T) {
	svc := New()

	t.Run("groups and ranks", func(t *testing.T) {
		expenses := models.NewRecordSet([]models.MonetaryRecord{
			expense("50", day(2024, 1, 1), "Rent"),
			expense("30", day(2024, 1, 2), "Supplies"),
			expense("20", day(2024, 1, 3), ""),
			expense("10", day(2024, 1, 4), "Rent"),
		})

		shares := svc.RankCategories(expenses)
		if len(shares) != 3 {
			t.Fatalf("got %d shares, want 3", len(shares))
		}
		if shares[0].Name != "Rent" || !shares[0].Amount.Equal(dec("60")) {
			t.Errorf("top share = %s %s, want Rent 60", shares[0].Name, shares[0].Amount)
		}
		if shares[2].Name != "Other" {
			t.Errorf("missing category should rank as Other, got %s", shares[2].Name)
		}
		// 60/110, 30/110, 20/110 rounded
		wantPcts := []int{55, 27, 18}
		for i, want := range wantPcts {
			if shares[i].Percentage != want {
				t.Errorf("share %d percentage = %d, want %d", i, shares[i].Percentage, want)
			}
		}
	})

	t.Run("truncates to five", func(t *testing.T) {
		var recs []models.MonetaryRecord
		for i, cat := range []string{"A", "B", "C", "D", "E", "F", "G"} {
			recs = append(recs, expense("10", day(2024, 1, i+1), cat))
		}
		shares := svc.RankCategories(models.NewRecordSet(recs))
		if len(shares) != 5 {
			t.Errorf("got %d shares, want 5", len(shares))
		}
	})

	t.Run("ties keep first-encountered order", func(t *testing.T) {
		shares := svc.RankCategories(models.NewRecordSet([]models.MonetaryRecord{
			expense("25", day(2024, 1, 1), "Zulu"),
			expense("25", day(2024, 1, 2), "Alpha"),
		}))
		if shares[0].Name != "Zulu" || shares[1].Name != "Alpha" {
			t.Errorf("tie order = [%s %s], want [Zulu Alpha]", shares[0].Name, shares[1].Name)
		}
	})

	t.Run("non-increasing amounts", func(t *testing.T) {
		shares := svc.RankCategories(models.NewRecordSet([]models.MonetaryRecord{
			expense("5", day(2024, 1, 1), "A"),
			expense("40", day(2024, 1, 1), "B"),
			expense("15", day(2024, 1, 1), "C"),
		}))
		for i := 1; i < len(shares); i++ {
			if shares[i].Amount.GreaterThan(shares[i-1].Amount) {
				t.Errorf("shares not sorted descending at %d", i)
			}
		}
		for _, sh := range shares {
			if sh.Percentage < 0 {
				t.Errorf("negative percentage for %s", sh.Name)
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if shares := svc.RankCategories(models.NewRecordSet(nil)); len(shares) != 0 {
			t.Errorf("got %d shares for empty input, want 0", len(shares))
		}
	})
}

func TestRankCustomers(t *testing.T) {
	svc := New()

	t.Run("groups sums and counts", func(t *testing.T) {
		rankings := svc.RankCustomers(models.NewRecordSet([]models.MonetaryRecord{
			revenue("100", day(2024, 1, 1), "Aina"),
			revenue("40", day(2024, 1, 2), "Ben"),
			revenue("60", day(2024, 1, 3), "Aina"),
			// No customer reference: excluded, not bucketed as Unknown
			revenue("500", day(2024, 1, 4), ""),
		}))

		if len(rankings) != 2 {
			t.Fatalf("got %d rankings, want 2", len(rankings))
		}
		if rankings[0].Name != "Aina" || rankings[0].OrderCount != 2 || !rankings[0].TotalSpent.Equal(dec("160")) {
			t.Errorf("top customer = %+v, want Aina with 2 orders / 160", rankings[0])
		}
		if rankings[1].Name != "Ben" {
			t.Errorf("second customer = %s, want Ben", rankings[1].Name)
		}
	})

	t.Run("truncates to five", func(t *testing.T) {
		var recs []models.MonetaryRecord
		for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
			recs = append(recs, revenue("10", day(2024, 1, i+1), name))
		}
		rankings := svc.RankCustomers(models.NewRecordSet(recs))
		if len(rankings) != 5 {
			t.Errorf("got %d rankings, want 5", len(rankings))
		}
	})
}

func TestAggregateWeekScenario(t *testing.T) {
	svc := New()
	// Wednesday Jan 3: the week runs Sunday Dec 31 through Saturday Jan 6
	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

	records := []models.MonetaryRecord{
		revenue("100", day(2024, 1, 1), ""),
		revenue("50", day(2024, 1, 2), ""),
		expense("30", day(2024, 1, 1), "Rent"),
	}

	result := svc.Aggregate(records, models.PeriodWeek, now)
	snap := result.Snapshot

	if !snap.TotalRevenue.Equal(dec("150")) {
		t.Errorf("TotalRevenue = %s, want 150", snap.TotalRevenue)
	}
	if !snap.TotalExpenses.Equal(dec("30")) {
		t.Errorf("TotalExpenses = %s, want 30", snap.TotalExpenses)
	}
	if !snap.NetProfit.Equal(dec("120")) {
		t.Errorf("NetProfit = %s, want 120", snap.NetProfit)
	}
	if snap.ProfitMargin != 80.0 {
		t.Errorf("ProfitMargin = %v, want 80.0", snap.ProfitMargin)
	}
	if len(result.Categories) != 1 || result.Categories[0].Name != "Rent" || result.Categories[0].Percentage != 100 {
		t.Errorf("Categories = %+v, want [{Rent 30 100}]", result.Categories)
	}

	// Net profit identity holds exactly
	if !snap.NetProfit.Equal(snap.TotalRevenue.Sub(snap.TotalExpenses)) {
		t.Errorf("net profit identity violated: %s != %s - %s", snap.NetProfit, snap.TotalRevenue, snap.TotalExpenses)
	}
}

func TestAggregateZeroPreviousPeriod(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	// All activity is in the current day; the previous day is empty
	records := []models.MonetaryRecord{
		revenue("200", day(2024, 1, 10), "Aina"),
		expense("80", day(2024, 1, 10), "Stock"),
	}

	result := svc.Aggregate(records, models.PeriodDay, now)
	snap := result.Snapshot

	if snap.RevenueChangePct != "0%" {
		t.Errorf("RevenueChangePct = %q, want %q", snap.RevenueChangePct, "0%")
	}
	if snap.ExpensesChangePct != "0%" {
		t.Errorf("ExpensesChangePct = %q, want %q", snap.ExpensesChangePct, "0%")
	}
	if snap.ProfitChangePct != "0%" {
		t.Errorf("ProfitChangePct = %q, want %q", snap.ProfitChangePct, "0%")
	}
}

func TestAggregateChangeVersusPreviousPeriod(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	records := []models.MonetaryRecord{
		revenue("100", day(2024, 1, 9), ""), // yesterday
		revenue("150", day(2024, 1, 10), ""),
		expense("50", day(2024, 1, 9), "Stock"),
		expense("25", day(2024, 1, 10), "Stock"),
	}

	result := svc.Aggregate(records, models.PeriodDay, now)
	snap := result.Snapshot

	if snap.RevenueChangePct != "+50.0%" {
		t.Errorf("RevenueChangePct = %q, want %q", snap.RevenueChangePct, "+50.0%")
	}
	if snap.ExpensesChangePct != "-50.0%" {
		t.Errorf("ExpensesChangePct = %q, want %q", snap.ExpensesChangePct, "-50.0%")
	}
	// Profit moved from 50 to 125
	if snap.ProfitChangePct != "+150.0%" {
		t.Errorf("ProfitChangePct = %q, want %q", snap.ProfitChangePct, "+150.0%")
	}
}

func TestAggregateRecoveryFromLoss(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	// Yesterday ran a 100 loss; today profits 50
	records := []models.MonetaryRecord{
		revenue("20", day(2024, 1, 9), ""),
		expense("120", day(2024, 1, 9), "Stock"),
		revenue("100", day(2024, 1, 10), ""),
		expense("50", day(2024, 1, 10), "Stock"),
	}

	result := svc.Aggregate(records, models.PeriodDay, now)
	snap := result.Snapshot

	if snap.ProfitChangePct != "+150.0%" {
		t.Errorf("ProfitChangePct = %q, want %q", snap.ProfitChangePct, "+150.0%")
	}
}

func TestAggregateEmptyRecords(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	result := svc.Aggregate(nil, models.PeriodMonth, now)
	snap := result.Snapshot

	if !snap.TotalRevenue.IsZero() || !snap.TotalExpenses.IsZero() || !snap.NetProfit.IsZero() {
		t.Errorf("expected all-zero snapshot, got %+v", snap)
	}
	if snap.ProfitMargin != 0 {
		t.Errorf("ProfitMargin = %v, want 0", snap.ProfitMargin)
	}
	if len(result.Buckets) != 31 {
		t.Errorf("got %d buckets for January, want 31", len(result.Buckets))
	}
	for _, b := range result.Buckets {
		if !b.Income.IsZero() || !b.Expense.IsZero() {
			t.Errorf("bucket %s not zero for empty input", b.Label)
		}
	}
	if len(result.Categories) != 0 || len(result.Customers) != 0 {
		t.Errorf("expected empty rankings, got %d categories / %d customers",
			len(result.Categories), len(result.Customers))
	}
}

func TestAggregateNegativeProfit(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	records := []models.MonetaryRecord{
		revenue("100", day(2024, 1, 10), ""),
		expense("250", day(2024, 1, 10), "Stock"),
	}

	snap := svc.Aggregate(records, models.PeriodDay, now).Snapshot
	if !snap.NetProfit.Equal(dec("-150")) {
		t.Errorf("NetProfit = %s, want -150", snap.NetProfit)
	}
	if snap.ProfitMargin != -150.0 {
		t.Errorf("ProfitMargin = %v, want -150.0", snap.ProfitMargin)
	}
}

func TestAggregateSkipsMalformedRecords(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	records := []models.MonetaryRecord{
		revenue("100", day(2024, 1, 10), ""),
		{ID: "bad-date", Amount: dec("50"), Kind: models.Revenue}, // zero timestamp
		{ID: "bad-amount", Amount: dec("-5"), OccurredAt: day(2024, 1, 10), Kind: models.Expense},
	}

	result := svc.Aggregate(records, models.PeriodDay, now)
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}
	if !result.Snapshot.TotalRevenue.Equal(dec("100")) {
		t.Errorf("TotalRevenue = %s, want 100 (bad records excluded)", result.Snapshot.TotalRevenue)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	svc := New()
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	records := []models.MonetaryRecord{
		revenue("100", day(2024, 1, 8), "Aina"),
		expense("30", day(2024, 1, 9), "Rent"),
	}

	first := svc.Aggregate(records, models.PeriodWeek, now)
	second := svc.Aggregate(records, models.PeriodWeek, now)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated aggregation differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
