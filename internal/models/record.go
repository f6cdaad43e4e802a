package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind indicates whether a monetary record is revenue or an expense
type RecordKind string

const (
	Revenue RecordKind = "Revenue"
	Expense RecordKind = "Expense"
)

// MonetaryRecord represents a single dated monetary record. Amounts are
// non-negative; the kind carries the direction. Category is meaningful for
// expenses, Customer for revenue.
type MonetaryRecord struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
	Kind       RecordKind      `json:"kind"`
	Category   string          `json:"category,omitempty"`
	Customer   string          `json:"customer,omitempty"`
	SourceFile string          `json:"source_file,omitempty"`
	Hash       string          `json:"hash,omitempty"`
}

// ComputeHash generates a content hash for duplicate detection
func (r *MonetaryRecord) ComputeHash() string {
	dateStr := r.OccurredAt.Format("2006-01-02")
	desc := strings.ToLower(strings.TrimSpace(r.Category + "|" + r.Customer))
	input := fmt.Sprintf("%s|%s|%s|%s", dateStr, r.Kind, desc, r.Amount.StringFixed(2))
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// Valid reports whether the record is well-formed enough to aggregate:
// a parseable timestamp and a non-negative amount.
func (r *MonetaryRecord) Valid() bool {
	return !r.OccurredAt.IsZero() && !r.Amount.IsNegative()
}

// RecordSet wraps a slice of records with filtering/aggregation methods
type RecordSet struct {
	Records []MonetaryRecord
}

// NewRecordSet creates a new RecordSet from a slice
func NewRecordSet(records []MonetaryRecord) *RecordSet {
	return &RecordSet{Records: records}
}

// Len returns the number of records
func (rs *RecordSet) Len() int {
	return len(rs.Records)
}

// FilterByKind returns records of the specified kind
func (rs *RecordSet) FilterByKind(kind RecordKind) *RecordSet {
	result := &RecordSet{}
	for _, r := range rs.Records {
		if r.Kind == kind {
			result.Records = append(result.Records, r)
		}
	}
	return result
}

// FilterByInterval returns records whose timestamp falls in [iv.Start, iv.End].
// Both bounds are inclusive, matching the daily rollup convention.
func (rs *RecordSet) FilterByInterval(iv Interval) *RecordSet {
	result := &RecordSet{}
	for _, r := range rs.Records {
		if iv.Contains(r.OccurredAt) {
			result.Records = append(result.Records, r)
		}
	}
	return result
}

// FilterByCategory returns expense records matching the category
func (rs *RecordSet) FilterByCategory(category string) *RecordSet {
	result := &RecordSet{}
	catLower := strings.ToLower(category)
	for _, r := range rs.Records {
		if strings.ToLower(r.Category) == catLower {
			result.Records = append(result.Records, r)
		}
	}
	return result
}

// FilterValid returns only well-formed records, together with the count of
// records that were dropped. Bad records are a data-quality problem, not a
// fatal one.
func (rs *RecordSet) FilterValid() (*RecordSet, int) {
	result := &RecordSet{}
	skipped := 0
	for _, r := range rs.Records {
		if r.Valid() {
			result.Records = append(result.Records, r)
		} else {
			skipped++
		}
	}
	return result, skipped
}

// SumAmount returns the sum of all record amounts
func (rs *RecordSet) SumAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rs.Records {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// GroupByDay groups records by calendar day ("2006-01-02" keys)
func (rs *RecordSet) GroupByDay() map[string]*RecordSet {
	result := make(map[string]*RecordSet)
	for _, r := range rs.Records {
		key := r.OccurredAt.Format("2006-01-02")
		if result[key] == nil {
			result[key] = &RecordSet{}
		}
		result[key].Records = append(result[key].Records, r)
	}
	return result
}

// GroupByCategory groups expense records by category, coercing a missing
// category to "Other"
func (rs *RecordSet) GroupByCategory() map[string]*RecordSet {
	result := make(map[string]*RecordSet)
	for _, r := range rs.Records {
		cat := r.Category
		if cat == "" {
			cat = "Other"
		}
		if result[cat] == nil {
			result[cat] = &RecordSet{}
		}
		result[cat].Records = append(result[cat].Records, r)
	}
	return result
}

// SortByDate sorts records by timestamp (ascending)
func (rs *RecordSet) SortByDate() *RecordSet {
	sorted := make([]MonetaryRecord, len(rs.Records))
	copy(sorted, rs.Records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})
	return &RecordSet{Records: sorted}
}

// SortByDateDesc sorts records by timestamp (descending)
func (rs *RecordSet) SortByDateDesc() *RecordSet {
	sorted := make([]MonetaryRecord, len(rs.Records))
	copy(sorted, rs.Records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})
	return &RecordSet{Records: sorted}
}

// MinDate returns the earliest record timestamp
func (rs *RecordSet) MinDate() time.Time {
	if len(rs.Records) == 0 {
		return time.Time{}
	}
	minDate := rs.Records[0].OccurredAt
	for _, r := range rs.Records[1:] {
		if r.OccurredAt.Before(minDate) {
			minDate = r.OccurredAt
		}
	}
	return minDate
}

// MaxDate returns the latest record timestamp
func (rs *RecordSet) MaxDate() time.Time {
	if len(rs.Records) == 0 {
		return time.Time{}
	}
	maxDate := rs.Records[0].OccurredAt
	for _, r := range rs.Records[1:] {
		if r.OccurredAt.After(maxDate) {
			maxDate = r.OccurredAt
		}
	}
	return maxDate
}

// Categories returns a sorted list of unique expense categories
func (rs *RecordSet) Categories() []string {
	catMap := make(map[string]bool)
	for _, r := range rs.Records {
		if r.Kind != Expense {
			continue
		}
		cat := r.Category
		if cat == "" {
			cat = "Other"
		}
		catMap[cat] = true
	}

	cats := make([]string, 0, len(catMap))
	for cat := range catMap {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Paginate returns a slice of records for the given page
func (rs *RecordSet) Paginate(page, perPage int) *RecordSet {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}

	start := (page - 1) * perPage
	if start >= len(rs.Records) {
		return &RecordSet{}
	}

	end := start + perPage
	if end > len(rs.Records) {
		end = len(rs.Records)
	}

	return &RecordSet{Records: rs.Records[start:end]}
}

// Copy creates a shallow copy of the RecordSet
func (rs *RecordSet) Copy() *RecordSet {
	copied := make([]MonetaryRecord, len(rs.Records))
	copy(copied, rs.Records)
	return &RecordSet{Records: copied}
}
