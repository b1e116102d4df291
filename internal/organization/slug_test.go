package organization

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Bergen Sjakklubb", "bergen-sjakklubb"},
		{"Ærlig Øl & Ånd", "aerlig-ol-aand"},
		{"  --Hei!!  Verden--  ", "hei-verden"},
		{"Café Ünïcode", "cafe-unicode"},
		{"Sport_Og_Fritid", "sport-og-fritid"},
		{"IL Tryggve 1905", "il-tryggve-1905"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.name))
		})
	}
}

func TestSlug_IdempotentAndAlphabet(t *testing.T) {
	valid := regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*)?$`)
	names := []string{
		"Norsk Folkehjelp Sanitet", "Ål Idrettslag", "Søndre Land Røde Kors",
		"Foreningen «Våre Venner»", "4H Norge", "Kor – og korps", "ÆØÅ æøå",
	}
	for _, name := range names {
		s := Slug(name)
		assert.Regexp(t, valid, s, name)
		assert.Equal(t, s, Slug(s), "slug of %q must be idempotent", name)
	}
}
