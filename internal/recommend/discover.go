package recommend

import (
	"insta/internal/model"
)

// DiscoverFromFeed returns authors seen in the feed that me does not follow
// yet, in order of first appearance.
func DiscoverFromFeed(me model.User, posts []model.Post) []Candidate {
	seen := map[string]struct{}{me.UserName: {}}
	for _, f := range me.Following {
		seen[f] = struct{}{}
	}
	var out []Candidate
	for _, p := range posts {
		if p.UserName == "" {
			continue
		}
		if _, ok := seen[p.UserName]; ok {
			continue
		}
		seen[p.UserName] = struct{}{}
		out = append(out, Candidate{UserName: p.UserName})
	}
	return out
}
