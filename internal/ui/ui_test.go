package ui

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

func sampleOrgs() []organization.Organization {
	return []organization.Organization{
		{
			ID:                        "a",
			Navn:                      "Bergen Kor",
			ForretningsadresseKommune: "BERGEN",
			Fylke:                     "Vestland",
			Aktivitet:                 "Korsang\nog  konsertar " + strings.Repeat("x", 80),
		},
		{ID: "b", Navn: "Oslo Turlag", ForretningsadresseKommune: "OSLO"},
	}
}

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(NewConfig(&buf))
	assert.True(t, p.Plain())
	assert.False(t, IsTTY(&buf))
	assert.False(t, IsTTY(nil))
}

func TestNewConfig_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	cfg := NewConfig(nil)
	assert.True(t, cfg.NoColor)

	cfg = NewConfig(nil, WithNoColor(false), WithForcePlain(true))
	assert.False(t, cfg.NoColor)
	assert.True(t, cfg.ForcePlain)
}

func TestOrganizations_PlainIsTabAligned(t *testing.T) {
	// Given: a plain printer
	var buf bytes.Buffer
	p := NewPrinter(NewConfig(&buf))

	// When: printing two organizations
	p.Organizations(sampleOrgs())

	// Then: a header and one line per record, aktivitet flattened and clipped
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[1], "Bergen Kor")
	assert.Contains(t, lines[1], "Korsang og konsertar")
	assert.Contains(t, lines[1], "…")
	assert.Contains(t, lines[2], "OSLO")
}

func TestOrganizations_TerminalTable(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{out: &buf, styles: NoColorStyles()}

	p.Organizations(sampleOrgs())

	out := buf.String()
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "Aktivitet")
	assert.Contains(t, out, "Oslo Turlag")
}

func TestOrganizations_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(NewConfig(&buf)).Organizations(nil)
	assert.Equal(t, "Ingen treff\n", buf.String())
}

func TestOrganization_SkipsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(NewConfig(&buf))

	p.Organization(&organization.Organization{
		Navn:                "Bergen Kor",
		Organisasjonsnummer: "971000001",
		Epost:               "post@kor.no",
	})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Bergen Kor\n"))
	assert.Contains(t, out, "971000001")
	assert.Contains(t, out, "post@kor.no")
	assert.NotContains(t, out, "Telefon")
}

func TestPrinter_StatusLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(NewConfig(&buf))

	p.Success("loaded %d", 3)
	p.Warning("slow")
	p.Error("failed")

	assert.Equal(t, "✓ loaded 3\n! slow\n✗ failed\n", buf.String())
}

func TestProgress_Plain(t *testing.T) {
	var buf bytes.Buffer
	g := NewPrinter(NewConfig(&buf)).NewProgress("EMBED")

	g.Update(100, 250)
	g.Update(250, 250)
	g.Update(260, 250)
	g.Update(1, 0)
	g.Done()

	assert.Equal(t, "[EMBED] 100/250\n[EMBED] 250/250\n", buf.String())
}

func TestProgress_TerminalEndsWithNewline(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{out: &buf, noColor: true, styles: NoColorStyles()}
	g := p.NewProgress("EMBED")

	g.Update(5, 10)
	g.Done()
	g.Done()

	assert.True(t, strings.HasPrefix(buf.String(), "\rEMBED ["))
	assert.Contains(t, buf.String(), " 50% 5/10")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestProgress_TerminalBarWidth(t *testing.T) {
	// Given: an uncolored terminal printer
	var buf bytes.Buffer
	p := &Printer{out: &buf, noColor: true, styles: NoColorStyles()}
	g := p.NewProgress("EMBED")

	// When: reporting half of the work
	g.Update(1, 2)

	// Then: the bar between the brackets is progressWidth cells, half filled
	out := buf.String()
	bar := out[strings.Index(out, "[")+1 : strings.Index(out, "]")]
	assert.Equal(t, progressWidth, utf8.RuneCountInString(bar))
	assert.Equal(t, progressWidth/2, strings.Count(bar, "█"))
}
