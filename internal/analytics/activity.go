package analytics

import (
	"sort"
	"time"

	"insta/internal/model"
	"insta/internal/store/localdb"
)

// FromStored converts logged events into activity events.
func FromStored(evts []localdb.Event) []model.ActivityEvent {
	out := make([]model.ActivityEvent, 0, len(evts))
	for _, e := range evts {
		out = append(out, model.ActivityEvent{Timestamp: e.TS, Type: e.Type, Target: e.Target})
	}
	return out
}

// HourlyActivity aggregates events into per-hour buckets keyed by UTC hour.
func HourlyActivity(events []model.ActivityEvent) map[time.Time]map[string]int {
	buckets := make(map[time.Time]map[string]int)
	for _, e := range events {
		ts := e.Timestamp.UTC()
		key := time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, time.UTC)
		if _, ok := buckets[key]; !ok {
			buckets[key] = make(map[string]int)
		}
		buckets[key][e.Type]++
	}
	return buckets
}

// Totals counts events per type.
func Totals(events []model.ActivityEvent) map[string]int {
	out := make(map[string]int)
	for _, e := range events {
		out[e.Type]++
	}
	return out
}

// SortedBucketKeys returns sorted hour keys.
func SortedBucketKeys(m map[time.Time]map[string]int) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// SortedTypes returns the event types present in m, alphabetically.
func SortedTypes(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
