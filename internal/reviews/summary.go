// Package reviews aggregates spot reviews into a rating average and a
// crowd-level consensus.
package reviews

import (
	"fmt"
	"math"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

// TiePolicy decides the crowd consensus when two or more levels share the
// highest vote count.
type TiePolicy int

const (
	// TieFavorsSevere picks the busiest of the tied levels.
	TieFavorsSevere TiePolicy = iota
	// TieFavorsMild picks the quietest of the tied levels.
	TieFavorsMild
	// TieUnresolved reports no consensus.
	TieUnresolved
)

func (p TiePolicy) String() string {
	switch p {
	case TieFavorsSevere:
		return "severe"
	case TieFavorsMild:
		return "mild"
	case TieUnresolved:
		return "unresolved"
	default:
		return fmt.Sprintf("TiePolicy(%d)", int(p))
	}
}

// ParseTiePolicy reads a policy name; empty means the default.
func ParseTiePolicy(s string) (TiePolicy, error) {
	switch s {
	case "", "severe":
		return TieFavorsSevere, nil
	case "mild":
		return TieFavorsMild, nil
	case "unresolved":
		return TieUnresolved, nil
	default:
		return 0, fmt.Errorf("unknown tie policy %q", s)
	}
}

// Summary is the aggregate view of a spot's reviews.
type Summary struct {
	AverageRating float64                   `json:"average_rating"`
	ReviewCount   int                       `json:"review_count"`
	CrowdLevel    models.CrowdLevel         `json:"crowd_level,omitempty"`
	CrowdVotes    map[models.CrowdLevel]int `json:"crowd_votes,omitempty"`
}

// Summarize averages ratings (rounded to one decimal, 0 without reviews)
// and takes a majority vote over the reported crowd levels.
func Summarize(rs []models.Review, policy TiePolicy) Summary {
	s := Summary{ReviewCount: len(rs)}
	if len(rs) == 0 {
		return s
	}

	total := 0
	votes := make(map[models.CrowdLevel]int)
	for _, r := range rs {
		total += r.Rating
		if r.CrowdLevel.Severity() > 0 {
			votes[r.CrowdLevel]++
		}
	}
	s.AverageRating = math.Round(float64(total)/float64(len(rs))*10) / 10
	if len(votes) > 0 {
		s.CrowdVotes = votes
		s.CrowdLevel = consensus(votes, policy)
	}
	return s
}

func consensus(votes map[models.CrowdLevel]int, policy TiePolicy) models.CrowdLevel {
	best := 0
	var tied []models.CrowdLevel
	// CrowdLevels is ordered mild to severe, so tied stays ordered too
	for _, level := range models.CrowdLevels {
		n := votes[level]
		switch {
		case n == 0:
		case n > best:
			best = n
			tied = []models.CrowdLevel{level}
		case n == best:
			tied = append(tied, level)
		}
	}
	if len(tied) == 0 {
		return ""
	}
	if len(tied) == 1 {
		return tied[0]
	}
	switch policy {
	case TieFavorsMild:
		return tied[0]
	case TieUnresolved:
		return ""
	default:
		return tied[len(tied)-1]
	}
}
