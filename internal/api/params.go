package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/search"
	"github.com/lukketsvane/frivillig-db/internal/store"
)

// parseLimit returns def for an empty value. Anything that is not an
// integer in [1, max] is an error.
func parseLimit(raw string, def, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit %q is not an integer", raw)
	}
	if n < 1 || n > max {
		return 0, fmt.Errorf("limit %d is outside [1, %d]", n, max)
	}
	return n, nil
}

func parseOffset(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("offset %q must be a non-negative integer", raw)
	}
	return n, nil
}

// searchOptions are the parsed /search parameters.
type searchOptions struct {
	params          store.Params
	includeContact  bool
	includeDetailed bool
}

func parseSearch(q url.Values, defaultLimit, maxLimit int) (searchOptions, *paramError) {
	limit, err := parseLimit(q.Get("limit"), defaultLimit, maxLimit)
	if err != nil {
		return searchOptions{}, &paramError{message: fmt.Sprintf("Limit must be between 1 and %d", maxLimit), details: err.Error()}
	}
	offset, err := parseOffset(q.Get("offset"))
	if err != nil {
		return searchOptions{}, &paramError{message: "Offset must be a non-negative integer", details: err.Error()}
	}

	return searchOptions{
		params: store.Params{
			Query:             q.Get("query"),
			Location:          q.Get("location"),
			Fylke:             q.Get("fylke"),
			Kommune:           q.Get("kommune"),
			Poststed:          q.Get("poststed"),
			Postnummer:        q.Get("postnummer"),
			Naeringskode:      q.Get("naeringskode"),
			Organisasjonsform: q.Get("organisasjonsform"),
			OnlyWithWebsite:   q.Get("only_with_website") == "true",
			OnlyWithEmail:     q.Get("only_with_email") == "true",
			Sort:              store.ParseSort(q.Get("sort")),
			Order:             store.ParseOrder(q.Get("order")),
			Limit:             limit,
			Offset:            offset,
		},
		includeContact:  q.Get("include_contact") != "false",
		includeDetailed: q.Get("include_detailed") == "true",
	}, nil
}

func parseRecommendation(q url.Values, maxLimit int) (search.Request, *paramError) {
	limit, err := parseLimit(q.Get("limit"), search.DefaultLimit, maxLimit)
	if err != nil {
		return search.Request{}, &paramError{message: fmt.Sprintf("Limit must be between 1 and %d", maxLimit), details: err.Error()}
	}

	var interests []string
	for _, s := range strings.Split(q.Get("interests"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			interests = append(interests, s)
		}
	}

	return search.Request{
		Query:     strings.TrimSpace(q.Get("query")),
		Interests: interests,
		AgeGroup:  strings.TrimSpace(q.Get("age_group")),
		Location:  strings.TrimSpace(q.Get("location")),
		User: organization.Location{
			Postnummer: strings.TrimSpace(q.Get("user_postnummer")),
			Kommune:    strings.TrimSpace(q.Get("user_kommune")),
			Fylke:      strings.TrimSpace(q.Get("user_fylke")),
		},
		Limit: limit,
	}, nil
}

type paramError struct {
	message string
	details string
}
