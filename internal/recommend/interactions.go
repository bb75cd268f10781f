package recommend

import (
	"context"
	"encoding/json"
	"time"

	"insta/internal/store/localdb"
)

// EventSource reads the local activity log.
type EventSource interface {
	LoadEventsRange(ctx context.Context, start, end time.Time, typ string) ([]localdb.Event, error)
}

// CountInteractionsByAuthor counts logged likes and comments per post author
// within [start, end).
func CountInteractionsByAuthor(ctx context.Context, db EventSource, start, end time.Time) map[string]int {
	counts := make(map[string]int)
	evts, err := db.LoadEventsRange(ctx, start, end, "")
	if err != nil {
		return counts
	}
	for _, e := range evts {
		if e.Type != "like" && e.Type != "comment" {
			continue
		}
		var p struct {
			Author string `json:"author"`
		}
		_ = json.Unmarshal([]byte(e.Payload), &p)
		if p.Author == "" {
			continue
		}
		counts[p.Author]++
	}
	return counts
}
