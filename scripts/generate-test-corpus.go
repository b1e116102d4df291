//go:build ignore

// Package main generates a synthetic organization corpus for load testing
// and local development.
// Usage: go run scripts/generate-test-corpus.go -orgs 50000 -output testdata/db
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var (
	numOrgs   = flag.Int("orgs", 10000, "Number of organizations to generate")
	numShards = flag.Int("shards", 9, "Number of shard files")
	outputDir = flag.String("output", "testdata/db", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

type place struct {
	kommune    string
	fylke      string
	postnummer string
}

var places = []place{
	{"OSLO", "OSLO", "0150"},
	{"BERGEN", "VESTLAND", "5003"},
	{"TRONDHEIM", "TRØNDELAG", "7011"},
	{"STAVANGER", "ROGALAND", "4006"},
	{"TROMSØ", "TROMS", "9008"},
	{"KRISTIANSAND", "AGDER", "4611"},
	{"VOSS", "VESTLAND", "5700"},
	{"BODØ", "NORDLAND", "8006"},
	{"HAMAR", "INNLANDET", "2317"},
	{"ÅLESUND", "MØRE OG ROMSDAL", "6002"},
}

var kinds = []struct {
	suffix    string
	aktivitet string
	kategori  string
}{
	{"Idrettslag", "Fotball, handball og friidrett for born og vaksne", "Idrett"},
	{"Mannskor", "Korsong og konsertar gjennom heile året", "Kultur"},
	{"Skulekorps", "Musikkorps for born i skulealder", "Kultur"},
	{"Sjakklubb", "Sjakktrening, turneringar og kurs", "Fritid"},
	{"Røde Kors", "Besøksteneste, leksehjelp og førstehjelp", "Humanitært"},
	{"Turlag", "Fellesturar, hyttedrift og merking av stiar", "Friluftsliv"},
	{"Speidargruppe", "Friluftsliv og leiarskap for born og unge", "Barn og unge"},
	{"Designforum", "Møteplass for design, arkitektur og handverk", "Kultur"},
}

type organization struct {
	ID                                 string   `json:"id"`
	Organisasjonsnummer                string   `json:"organisasjonsnummer"`
	Navn                               string   `json:"navn"`
	Aktivitet                          string   `json:"aktivitet"`
	VedtektsfestetFormaal              string   `json:"vedtektsfestet_formaal"`
	ForretningsadressePoststed         string   `json:"forretningsadresse_poststed"`
	ForretningsadresseKommune          string   `json:"forretningsadresse_kommune"`
	ForretningsadressePostnummer       string   `json:"forretningsadresse_postnummer"`
	ForretningsadresseAdresse          []string `json:"forretningsadresse_adresse"`
	Fylke                              string   `json:"fylke"`
	Hjemmeside                         string   `json:"hjemmeside,omitempty"`
	Epost                              string   `json:"epost,omitempty"`
	RegistrertIFrivillighetsregisteret bool     `json:"registrert_i_frivillighetsregisteret"`
	Kategori                           []string `json:"kategori"`
}

func generate(r *rand.Rand, i int) organization {
	p := places[r.Intn(len(places))]
	k := kinds[r.Intn(len(kinds))]
	name := fmt.Sprintf("%s %s %d", titleCase(p.kommune), k.suffix, i)

	org := organization{
		ID:                                 uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String(),
		Organisasjonsnummer:                fmt.Sprintf("%09d", 900000000+i),
		Navn:                               name,
		Aktivitet:                          k.aktivitet,
		VedtektsfestetFormaal:              "Skal drive " + k.kategori + " i " + titleCase(p.kommune),
		ForretningsadressePoststed:         p.kommune,
		ForretningsadresseKommune:          p.kommune,
		ForretningsadressePostnummer:       p.postnummer,
		ForretningsadresseAdresse:          []string{fmt.Sprintf("Storgata %d", 1+r.Intn(120))},
		Fylke:                              p.fylke,
		RegistrertIFrivillighetsregisteret: r.Intn(20) != 0,
		Kategori:                           []string{k.kategori},
	}
	if r.Intn(2) == 0 {
		org.Hjemmeside = fmt.Sprintf("https://org%d.example.no", i)
	}
	if r.Intn(3) == 0 {
		org.Epost = fmt.Sprintf("post@org%d.example.no", i)
	}
	return org
}

// titleCase turns "TROMSØ" into "Tromsø".
func titleCase(s string) string {
	rs := []rune(strings.ToLower(s))
	for i := range rs {
		if i == 0 || rs[i-1] == ' ' {
			rs[i] = unicode.ToUpper(rs[i])
		}
	}
	return string(rs)
}

func main() {
	flag.Parse()
	r := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	shards := make([][]organization, *numShards)
	for i := 0; i < *numOrgs; i++ {
		shards[i%*numShards] = append(shards[i%*numShards], generate(r, i))
	}

	for i, orgs := range shards {
		path := filepath.Join(*outputDir, fmt.Sprintf("organizations_part_%d.json", i+1))
		data, err := json.Marshal(orgs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding shard %d: %v\n", i+1, err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d organizations in %d shards under %s\n", *numOrgs, *numShards, *outputDir)
}
