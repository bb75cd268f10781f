package recommend

import (
	"context"

	"insta/internal/logging"
	"insta/internal/model"
)

// GraphClient is the part of the backend the graph walk needs.
type GraphClient interface {
	Following(ctx context.Context, askedUser string) ([]model.FollowEntry, error)
}

// Candidate is an account reached through the people me follows.
type Candidate struct {
	UserName string
	Avatar   string
	// Via lists the followed accounts that lead here.
	Via []string
}

// DiscoverGraph expands me's following list by one hop. Accounts me already
// follows and me itself are skipped. A failed lookup for one followed
// account is logged and skipped; limit caps the number of followed accounts
// visited, 0 means all.
func DiscoverGraph(ctx context.Context, client GraphClient, me model.User, limit int) ([]Candidate, error) {
	skip := map[string]struct{}{me.UserName: {}}
	for _, f := range me.Following {
		skip[f] = struct{}{}
	}
	index := make(map[string]int)
	var out []Candidate
	for i, followed := range me.Following {
		if limit > 0 && i >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		f, err := client.Following(ctx, followed)
		if err != nil {
			logging.Warn("graph_following_failed", map[string]any{"user": followed, "error": err.Error()})
			continue
		}
		for _, v := range f {
			if _, ok := skip[v.UserName]; ok || v.UserName == "" {
				continue
			}
			j, ok := index[v.UserName]
			if !ok {
				j = len(out)
				index[v.UserName] = j
				out = append(out, Candidate{UserName: v.UserName, Avatar: v.Avatar})
			}
			out[j].Via = appendUnique(out[j].Via, followed)
		}
	}
	return out, nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
