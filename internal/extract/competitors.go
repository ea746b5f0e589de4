package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/regattahq/raceboard/internal/race"
)

// CompetitorTableStrategies locates the entry list.
var CompetitorTableStrategies = []Strategy{
	{Name: "entries-class", Selector: "table.competitors, table.entries, table.entry-list"},
	{Name: "entries-id", Selector: "table#competitors, table#entries, table#entry-list"},
	{Name: "striped", Selector: "table.table-striped"},
}

var (
	quotedRe    = regexp.MustCompile(`^["'\x{201C}\x{2018}](.+)["'\x{201D}\x{2019}]$`)
	countryRe   = regexp.MustCompile(`^([A-Z]{2,3})\s`)
	withdrawnRe = regexp.MustCompile(`(?i)\bwithdrawn?\b`)
	pendingRe   = regexp.MustCompile(`(?i)\bpending\b`)
	paidRe      = regexp.MustCompile(`(?i)\bpaid\b|✓|✔`)
)

// CompetitorsPage is everything extracted from one entry-list page.
type CompetitorsPage struct {
	Competitors []race.Competitor
	Divisions   []race.Division
	Diagnostics []race.ParseDiagnostic
}

// ParseCompetitorsPage extracts registered entries. Competitors are
// regenerated on every scrape and keyed by the sail-number derived ID,
// so repeat scrapes are idempotent merge-upserts downstream.
func ParseCompetitorsPage(doc *goquery.Document) CompetitorsPage {
	var page CompetitorsPage

	tables, _ := FirstMatch(doc, CompetitorTableStrategies)
	if tables == nil {
		if biggest := LargestTable(doc); biggest != nil {
			tables = biggest
		}
	}
	if tables == nil {
		return page
	}

	seen := make(map[string]bool)
	tables.Each(func(_ int, table *goquery.Selection) {
		_, rows := splitTable(table)
		for i, cells := range rows {
			competitor, diag := ParseCompetitorRow(cells, i)
			if diag != nil {
				page.Diagnostics = append(page.Diagnostics, *diag)
				continue
			}
			if seen[competitor.ID] {
				continue
			}
			seen[competitor.ID] = true
			page.Competitors = append(page.Competitors, *competitor)
		}
	})

	page.Divisions = competitorDivisions(doc, page.Competitors)
	return page
}

// ParseCompetitorRow parses one entry-list row. The sail number is the
// hard gate, as everywhere. A quoted cell is the boat name; a comma
// cell after the helm lists crew members.
func ParseCompetitorRow(cells []string, rowIndex int) (*race.Competitor, *race.ParseDiagnostic) {
	cells = cleanCells(cells)
	if len(cells) == 0 {
		return nil, &race.ParseDiagnostic{Row: rowIndex, Reason: "empty row"}
	}

	rowText := strings.Join(cells, " ")
	competitor := race.Competitor{RegistrationStatus: race.RegistrationConfirmed}

	sailIdx := -1
	rest := cells
	if pureNumberRe.MatchString(cells[0]) {
		rest = cells[1:]
	}
	for i, c := range rest {
		if sail, ok := ExtractSailNumber(c); ok {
			competitor.SailNumber = sail
			sailIdx = i
			break
		}
	}
	if sailIdx < 0 {
		return nil, &race.ParseDiagnostic{Row: rowIndex, Reason: "no sail number"}
	}
	competitor.ID = race.CompetitorID(competitor.SailNumber)
	if m := countryRe.FindStringSubmatch(competitor.SailNumber); m != nil {
		competitor.Country = m[1]
	}

	for i, c := range rest {
		if i == sailIdx || c == "" {
			continue
		}
		if m := quotedRe.FindStringSubmatch(c); m != nil {
			if competitor.BoatName == "" {
				competitor.BoatName = strings.TrimSpace(m[1])
			}
			continue
		}
		switch {
		case pureNumberRe.MatchString(c):
			// sail digits or entry number; nothing to keep
		case isClubLike(c):
			if competitor.Club == "" {
				competitor.Club = stripBrackets(c)
			}
		case pendingRe.MatchString(c) || withdrawnRe.MatchString(c) || paidRe.MatchString(c):
			// handled from the whole-row scan below
		case competitor.HelmName == "":
			competitor.HelmName = c
		case len(competitor.CrewMembers) == 0:
			for _, member := range strings.Split(c, ",") {
				if member = strings.TrimSpace(member); member != "" {
					competitor.CrewMembers = append(competitor.CrewMembers, member)
				}
			}
		}
	}

	switch {
	case withdrawnRe.MatchString(rowText):
		competitor.RegistrationStatus = race.RegistrationWithdrawn
	case pendingRe.MatchString(rowText):
		competitor.RegistrationStatus = race.RegistrationPending
	}
	competitor.PaymentReceived = paidRe.MatchString(rowText)
	return &competitor, nil
}

// competitorDivisions uses explicit division column text when present
// in rows and otherwise falls back to the color-palette scan of the
// page free text.
func competitorDivisions(doc *goquery.Document, competitors []race.Competitor) []race.Division {
	m := divisionRe.FindStringSubmatch(doc.Text())
	if m == nil || len(competitors) == 0 {
		return nil
	}
	name := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
	var sails []string
	for i := range competitors {
		competitors[i].Division = name
		if !contains(sails, competitors[i].SailNumber) {
			sails = append(sails, competitors[i].SailNumber)
		}
	}
	return []race.Division{{Name: name, Competitors: sails}}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
