package service

import (
	"sort"
	"strings"

	"intake/internal/model"
	"intake/internal/utils"
)

// Match reason constants
const (
	ReasonExactName    = "Exact name"
	ReasonNamePrefix   = "Name prefix"
	ReasonNameContains = "Name contains query"
	ReasonSegmentMatch = "Matches a segment of the query"
	ReasonFirstResult  = "First result"
)

// RankedLocation is a location candidate with its score
type RankedLocation struct {
	Location       model.Location `json:"location"`
	Score          float64        `json:"score"`
	MatchedReasons []string       `json:"matched_reasons"`
}

// Ranker orders location candidates for a free-text place name
type Ranker struct {
	weightExact    float64
	weightPrefix   float64
	weightContains float64
	weightSegment  float64
}

// NewRanker creates a ranker with specified weights
func NewRanker(weightExact, weightPrefix, weightContains, weightSegment float64) *Ranker {
	return &Ranker{
		weightExact:    weightExact,
		weightPrefix:   weightPrefix,
		weightContains: weightContains,
		weightSegment:  weightSegment,
	}
}

// DefaultRanker prefers exact > prefix > contains, with segment overlap as a tiebreak
func DefaultRanker() *Ranker {
	return NewRanker(1.0, 0.6, 0.3, 0.05)
}

// RankLocations scores candidates against target (the narrowest place name
// the user wrote) and the other segments of the original text. Ties keep the
// autocomplete order.
func (r *Ranker) RankLocations(candidates []model.Location, target string, segments []string) []RankedLocation {
	results := make([]RankedLocation, 0, len(candidates))
	want := utils.NormalizeName(target)

	for _, loc := range candidates {
		name := utils.NormalizeName(loc.Name)
		// autocomplete names are often "Area, City"; score the leading part too
		head := name
		if i := strings.Index(name, ","); i >= 0 {
			head = strings.TrimSpace(name[:i])
		}

		result := RankedLocation{Location: loc, MatchedReasons: []string{}}
		switch {
		case want != "" && (name == want || head == want):
			result.Score += r.weightExact
			result.MatchedReasons = append(result.MatchedReasons, ReasonExactName)
		case want != "" && strings.HasPrefix(name, want):
			result.Score += r.weightPrefix
			result.MatchedReasons = append(result.MatchedReasons, ReasonNamePrefix)
		case want != "" && strings.Contains(name, want):
			result.Score += r.weightContains
			result.MatchedReasons = append(result.MatchedReasons, ReasonNameContains)
		}

		for _, seg := range segments {
			seg = utils.NormalizeName(seg)
			if seg != "" && seg != want && strings.Contains(name, seg) {
				result.Score += r.weightSegment
				result.MatchedReasons = append(result.MatchedReasons, ReasonSegmentMatch)
				break
			}
		}

		results = append(results, result)
	}

	// Sort by score descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > 0 && len(results[0].MatchedReasons) == 0 {
		results[0].MatchedReasons = append(results[0].MatchedReasons, ReasonFirstResult)
	}
	return results
}

// Best returns the top candidate, or false when there are none
func (r *Ranker) Best(candidates []model.Location, target string, segments []string) (model.Location, bool) {
	ranked := r.RankLocations(candidates, target, segments)
	if len(ranked) == 0 {
		return model.Location{}, false
	}
	return ranked[0].Location, true
}
