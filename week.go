package app

import (
	"sort"
	"time"
)

// WeekBucket holds the entries whose dates fall in the Monday to Sunday span
// starting at WeekStart.
type WeekBucket struct {
	WeekStart string
	Entries   map[EntryType][]Entry
}

// ByType returns the bucket's entries of type t in store order.
func (b WeekBucket) ByType(t EntryType) []Entry {
	return b.Entries[t]
}

// Len is the number of entries in the bucket across all types.
func (b WeekBucket) Len() int {
	n := 0
	for _, t := range EntryTypes {
		n += len(b.Entries[t])
	}
	return n
}

// WeekStart returns the Monday on or before day, as YYYY-MM-DD.
func WeekStart(day time.Time) string {
	d := day.UTC()
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -back).Format(DateLayout)
}

// GroupByWeek buckets entries by the Monday of their week and returns the
// buckets in ascending week order. Inside a bucket, entries are split by type
// and keep their relative input order. Entries whose type is not one of
// EntryTypes are left out.
func GroupByWeek(entries []Entry) []WeekBucket {
	byWeek := make(map[string]*WeekBucket)
	for _, e := range entries {
		if !e.Type.Valid() {
			continue
		}
		key := WeekStart(e.Date)
		b, ok := byWeek[key]
		if !ok {
			b = &WeekBucket{WeekStart: key, Entries: make(map[EntryType][]Entry, len(EntryTypes))}
			byWeek[key] = b
		}
		b.Entries[e.Type] = append(b.Entries[e.Type], e)
	}

	keys := make([]string, 0, len(byWeek))
	for k := range byWeek {
		keys = append(keys, k)
	}
	// Zero-padded ISO dates sort chronologically as strings.
	sort.Strings(keys)

	weeks := make([]WeekBucket, 0, len(keys))
	for _, k := range keys {
		weeks = append(weeks, *byWeek[k])
	}
	return weeks
}
