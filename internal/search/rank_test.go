package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

func TestRankByScore_GeographyBreaksNearTies(t *testing.T) {
	// Given: 0.81 outside the caller's kommune and 0.78 inside it
	orgs := []organization.Organization{
		org("far", "Oslo Kor", "0150", "OSLO", "OSLO"),
		org("near", "Bergen Kor", "5003", "BERGEN", "VESTLAND"),
	}
	scores := map[string]float64{"far": 0.81, "near": 0.78}

	// When: ranking for a Bergen caller
	RankByScore(orgs, scores, organization.Location{Kommune: "Bergen"}, VectorScoreTieEpsilon)

	// Then: geography wins inside the epsilon band
	assert.Equal(t, []string{"near", "far"}, ids(orgs))
}

func TestRankByScore_ScoreWinsOutsideEpsilon(t *testing.T) {
	orgs := []organization.Organization{
		org("near", "Bergen Kor", "5003", "BERGEN", "VESTLAND"),
		org("far", "Oslo Kor", "0150", "OSLO", "OSLO"),
	}
	scores := map[string]float64{"far": 0.90, "near": 0.70}

	RankByScore(orgs, scores, organization.Location{Kommune: "Bergen"}, VectorScoreTieEpsilon)

	assert.Equal(t, []string{"far", "near"}, ids(orgs))
}

func TestRankByScore_NoLocationOrdersByScore(t *testing.T) {
	orgs := []organization.Organization{
		org("b", "B", "", "", ""),
		org("a", "A", "", "", ""),
		org("c", "C", "", "", ""),
	}
	scores := map[string]float64{"a": 0.9, "b": 0.5, "c": 0.7}

	RankByScore(orgs, scores, organization.Location{}, 0)

	assert.Equal(t, []string{"a", "c", "b"}, ids(orgs))
}

func TestRankByScore_EqualTierKeepsInputOrder(t *testing.T) {
	orgs := []organization.Organization{
		org("first", "A", "", "OSLO", ""),
		org("second", "B", "", "OSLO", ""),
	}
	scores := map[string]float64{"first": 0.80, "second": 0.82}

	RankByScore(orgs, scores, organization.Location{Kommune: "Bergen"}, VectorScoreTieEpsilon)

	assert.Equal(t, []string{"first", "second"}, ids(orgs))
}
