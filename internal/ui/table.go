package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// MaxActivityRunes bounds the aktivitet column.
const MaxActivityRunes = 60

var tableHeaders = []string{"#", "Navn", "Kommune", "Fylke", "Aktivitet"}

// Organizations prints a result table. Terminals get a bordered lipgloss
// table; plain output is tab-aligned so it stays easy to grep and cut.
func (p *Printer) Organizations(orgs []organization.Organization) {
	if len(orgs) == 0 {
		_, _ = fmt.Fprintln(p.out, p.styles.Dim.Render("Ingen treff"))
		return
	}

	rows := organizationRows(orgs)
	if p.plain {
		tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, strings.Join(tableHeaders, "\t"))
		for _, r := range rows {
			_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
		}
		_ = tw.Flush()
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.Border).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.Header
			}
			return p.styles.Cell
		})
	_, _ = fmt.Fprintln(p.out, t.Render())
}

// Organization prints one record as labelled fields.
func (p *Printer) Organization(org *organization.Organization) {
	_, _ = fmt.Fprintln(p.out, p.styles.Title.Render(org.Navn))
	fields := []struct{ label, value string }{
		{"Organisasjonsnr", org.Organisasjonsnummer},
		{"ID", org.ID},
		{"Aktivitet", org.Aktivitet},
		{"Formål", org.VedtektsfestetFormaal},
		{"Adresse", org.ForretningsadresseAdresse.String()},
		{"Poststed", strings.TrimSpace(org.ForretningsadressePostnummer + " " + org.ForretningsadressePoststed)},
		{"Kommune", org.ForretningsadresseKommune},
		{"Fylke", org.Fylke},
		{"Hjemmeside", org.Hjemmeside},
		{"E-post", org.Epost},
		{"Telefon", org.Telefon},
	}
	for _, f := range fields {
		if f.value != "" {
			p.KeyValue(f.label, f.value)
		}
	}
}

func organizationRows(orgs []organization.Organization) [][]string {
	rows := make([][]string, len(orgs))
	for i := range orgs {
		o := &orgs[i]
		rows[i] = []string{
			fmt.Sprint(i + 1),
			o.Navn,
			o.ForretningsadresseKommune,
			o.Fylke,
			clip(oneLine(o.Aktivitet), MaxActivityRunes),
		}
	}
	return rows
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
