// Package ranking orders usage rows by the hit counter of a selected range.
package ranking

import (
	"cmp"
	"slices"

	"github.com/serroba/shortlink-web/internal/shortlink"
)

// metricFields lists, per range, the counter names that may carry the metric.
// The first one present on a row wins.
var metricFields = map[shortlink.Range][]string{
	shortlink.RangeToday:     {shortlink.FieldHitsToday, shortlink.FieldHitsInRange},
	shortlink.RangeLast7Days: {shortlink.FieldHitsIn7d, shortlink.FieldHitsInRange},
	shortlink.RangeAllTime:   {shortlink.FieldHitsTotal, shortlink.FieldHitsTotalV1},
}

// totalFields also accepts a plain hits counter, which the aggregate listing
// carries on older backends.
var totalFields = []string{shortlink.FieldHitsTotal, shortlink.FieldHitsTotalV1, shortlink.FieldHits}

// Metric returns the hit count of row for r, or 0 when no candidate field is present.
func Metric(row shortlink.Record, r shortlink.Range) int64 {
	return firstCounter(row, metricFields[r])
}

// Total is the all-time hit count of row as shown in the aggregate listing.
func Total(row shortlink.Record) int64 {
	return firstCounter(row, totalFields)
}

func firstCounter(row shortlink.Record, names []string) int64 {
	for _, name := range names {
		if v, ok := row.Counter(name); ok {
			return v
		}
	}

	return 0
}

// Rank returns a copy of rows sorted by descending Metric. Rows with equal
// metrics keep their input order. The input slice is not modified.
func Rank(rows []shortlink.Record, r shortlink.Range) []shortlink.Record {
	ranked := slices.Clone(rows)

	slices.SortStableFunc(ranked, func(a, b shortlink.Record) int {
		return cmp.Compare(Metric(b, r), Metric(a, r))
	})

	return ranked
}

// Top ranks rows and keeps the first limit of them. A non-positive limit keeps all.
func Top(rows []shortlink.Record, r shortlink.Range, limit int) []shortlink.Record {
	ranked := Rank(rows, r)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}
