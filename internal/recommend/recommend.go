package recommend

import (
	"sort"
)

// Suggestion is a ranked candidate.
type Suggestion struct {
	Candidate
	Mutual       int
	Interactions int
	Score        float64
}

// Rank scores candidates by how many followed accounts lead to them, with a
// smaller boost for accounts whose posts the user liked or commented on.
// Ties break by name so output is stable.
func Rank(cands []Candidate, interactions map[string]int) []Suggestion {
	out := make([]Suggestion, 0, len(cands))
	for _, c := range cands {
		s := Suggestion{Candidate: c, Mutual: len(c.Via), Interactions: interactions[c.UserName]}
		s.Score = float64(s.Mutual) + 0.5*float64(s.Interactions)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserName < out[j].UserName
	})
	return out
}

// Merge unions candidate lists, combining Via for repeated names.
func Merge(lists ...[]Candidate) []Candidate {
	index := make(map[string]int)
	var out []Candidate
	for _, l := range lists {
		for _, c := range l {
			j, ok := index[c.UserName]
			if !ok {
				index[c.UserName] = len(out)
				out = append(out, Candidate{UserName: c.UserName, Avatar: c.Avatar, Via: append([]string(nil), c.Via...)})
				continue
			}
			for _, v := range c.Via {
				out[j].Via = appendUnique(out[j].Via, v)
			}
			if out[j].Avatar == "" {
				out[j].Avatar = c.Avatar
			}
		}
	}
	return out
}
