package organization

import "strings"

// Profile is what the chat layer knows about a user. Only the fields that
// influence retrieval are modelled.
type Profile struct {
	AgeRange            string   `json:"age_range,omitempty"`
	LocationPoststed    string   `json:"location_poststed,omitempty"`
	LocationKommune     string   `json:"location_kommune,omitempty"`
	LocationFylke       string   `json:"location_fylke,omitempty"`
	Interests           []string `json:"interests,omitempty"`
	Skills              []string `json:"skills,omitempty"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	LifeStage           string   `json:"life_stage,omitempty"`
}

// TopInterests returns at most n non-empty interests in profile order.
func (p *Profile) TopInterests(n int) []string {
	if p == nil || n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for _, interest := range p.Interests {
		if s := strings.TrimSpace(interest); s != "" {
			out = append(out, s)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// Location returns the profile's place as a caller Location.
func (p *Profile) Location() Location {
	if p == nil {
		return Location{}
	}
	return Location{Kommune: p.LocationKommune, Fylke: p.LocationFylke}
}
