package zoomout

import "sort"

// MinEligibleRecords is the record count a type must exceed to get a deep analysis.
const MinEligibleRecords = 20

// TypeCount is one entry of the activity distribution.
type TypeCount struct {
	ActivityType string `json:"activity_type"`
	Count        int    `json:"count"`
}

// Distribution is the frequency of every activity type in the source.
// Counts are ordered by descending count, ties by first appearance.
type Distribution struct {
	Total  int         `json:"total"`
	Counts []TypeCount `json:"counts"`
}

// Classify counts records per activity type.
func Classify(records []Record) Distribution {
	index := make(map[string]int)
	counts := make([]TypeCount, 0, 16)
	for _, r := range records {
		i, ok := index[r.ActivityType]
		if !ok {
			i = len(counts)
			index[r.ActivityType] = i
			counts = append(counts, TypeCount{ActivityType: r.ActivityType})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return Distribution{Total: len(records), Counts: counts}
}

// Count returns the number of records of activity type t.
func (d Distribution) Count(t string) int {
	for _, c := range d.Counts {
		if c.ActivityType == t {
			return c.Count
		}
	}
	return 0
}

// Eligible returns the set of types with more than MinEligibleRecords records.
func (d Distribution) Eligible() map[string]bool {
	out := make(map[string]bool)
	for _, c := range d.Counts {
		if c.Count > MinEligibleRecords {
			out[c.ActivityType] = true
		}
	}
	return out
}

// EligibleTypes lists the eligible types in distribution order.
func EligibleTypes(d Distribution) []string {
	out := make([]string, 0, len(d.Counts))
	for _, c := range d.Counts {
		if c.Count > MinEligibleRecords {
			out = append(out, c.ActivityType)
		}
	}
	return out
}
