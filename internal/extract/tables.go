package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/regattahq/raceboard/internal/race"
)

// ResultTableStrategies is the ordered list of selectors tried when
// locating race/standings tables. First strategy with a non-empty
// match wins; LargestTable is the fallback when none do.
var ResultTableStrategies = []Strategy{
	{Name: "results-class", Selector: "table.results, table.race-results"},
	{Name: "results-id", Selector: "table#results, table#race-results, table#standings"},
	{Name: "striped", Selector: "table.table-striped"},
	{Name: "data-table", Selector: "table.table, table.data-table"},
}

var (
	raceHeadingRe  = regexp.MustCompile(`(?i)race\s*#?\s*(\d+)`)
	scoreHeaderRe  = regexp.MustCompile(`(?i)^(?:r|race)\s*\.?\s*\d+$`)
	windRe         = regexp.MustCompile(`(?i)(\d+(?:-\d+)?)\s*(?:kt|kts|knots)`)
	windDirRe      = regexp.MustCompile(`(?i)\b(N|NE|E|SE|S|SW|W|NW|NNE|ENE|ESE|SSE|SSW|WSW|WNW|NNW)\b\s*(?:wind|breeze)`)
	divisionRe     = regexp.MustCompile(`(?i)\b(Red|Blue|Yellow|Green|White)\b\s*(?:fleet|division)`)
)

// ResultsPage is everything extracted from one results page.
type ResultsPage struct {
	Races       []race.RaceResult
	Standings   []race.Standing
	Divisions   []race.Division
	Diagnostics []race.ParseDiagnostic
}

// ParseResultsPage locates candidate tables and splits them into
// per-race finish tables and series standings tables. A table whose
// header row names two or more race columns (R1, R2, ...) reads as a
// standings table; anything else reads as a single race's results.
func ParseResultsPage(doc *goquery.Document) ResultsPage {
	var page ResultsPage

	tables, _ := FirstMatch(doc, ResultTableStrategies)
	if tables == nil {
		if biggest := LargestTable(doc); biggest != nil {
			tables = biggest
		}
	}
	if tables == nil {
		return page
	}

	raceSeq := 0
	tables.Each(func(_ int, table *goquery.Selection) {
		headers, rows := splitTable(table)
		if len(rows) == 0 {
			return
		}
		if scoreCols := scoreColumns(headers); len(scoreCols) >= 2 {
			page.Standings = append(page.Standings,
				parseStandingsTable(rows, scoreCols, &page.Diagnostics)...)
			return
		}
		raceSeq++
		result := parseRaceTable(doc, table, rows, raceSeq, &page.Diagnostics)
		if len(result.Results) > 0 {
			page.Races = append(page.Races, result)
		}
	})

	page.Divisions = divisionsFromText(doc, page.Standings, page.Races)
	return page
}

func parseRaceTable(
	doc *goquery.Document,
	table *goquery.Selection,
	rows [][]string,
	seq int,
	diags *[]race.ParseDiagnostic,
) race.RaceResult {
	result := race.RaceResult{RaceNumber: raceNumberFor(table, seq)}
	for i, cells := range rows {
		entry, diag := ParseFinishRow(cells, i)
		if diag != nil {
			*diags = append(*diags, *diag)
			continue
		}
		result.Results = append(result.Results, *entry)
	}
	result.Conditions = conditionsFromText(doc.Text())
	return result
}

func parseStandingsTable(
	rows [][]string,
	scoreCols []int,
	diags *[]race.ParseDiagnostic,
) []race.Standing {
	var standings []race.Standing
	for i, cells := range rows {
		standing, diag := ParseStandingRow(cells, RowContext{ScoreColumns: scoreCols}, i)
		if diag != nil {
			*diags = append(*diags, *diag)
			continue
		}
		standings = append(standings, *standing)
	}
	return standings
}

// raceNumberFor reads the race number from the table caption or the
// nearest preceding heading, defaulting to the table's sequence.
func raceNumberFor(table *goquery.Selection, seq int) int {
	texts := []string{table.Find("caption").Text()}
	if prev := table.PrevAllFiltered("h1, h2, h3, h4").First(); prev.Length() > 0 {
		texts = append(texts, prev.Text())
	}
	for _, t := range texts {
		if m := raceHeadingRe.FindStringSubmatch(t); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return seq
}

// splitTable separates a header row (th cells, or a first row with no
// sail number) from data rows.
func splitTable(table *goquery.Selection) (headers []string, rows [][]string) {
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		isHeader := tr.Find("th").Length() > 0 && tr.Find("td").Length() == 0
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cleanText(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if isHeader && headers == nil {
			headers = cells
			return
		}
		rows = append(rows, cells)
	})
	// Some layouts render the header as a plain first row.
	if headers == nil && len(rows) > 1 {
		if _, ok := rowSailNumber(rows[0]); !ok && looksLikeHeader(rows[0]) {
			headers = rows[0]
			rows = rows[1:]
		}
	}
	return headers, rows
}

func rowSailNumber(cells []string) (string, bool) {
	for _, c := range cells {
		if sail, ok := ExtractSailNumber(c); ok {
			return sail, true
		}
	}
	return "", false
}

func looksLikeHeader(cells []string) bool {
	for _, c := range cells {
		if pureNumberRe.MatchString(c) {
			return false
		}
	}
	return true
}

// scoreColumns returns the header indices that name race columns.
func scoreColumns(headers []string) []int {
	var cols []int
	for i, h := range headers {
		h = cleanText(h)
		if scoreHeaderRe.MatchString(h) {
			cols = append(cols, i)
		}
	}
	return cols
}

func conditionsFromText(text string) *race.Conditions {
	cond := race.Conditions{}
	if m := windRe.FindStringSubmatch(text); m != nil {
		cond.WindSpeed = m[1] + " kt"
	}
	if m := windDirRe.FindStringSubmatch(text); m != nil {
		cond.WindDirection = strings.ToUpper(m[1])
	}
	if cond == (race.Conditions{}) {
		return nil
	}
	return &cond
}

// divisionsFromText assigns sail numbers to fleets using the fixed
// five-color palette scanned against page free text. Division markup
// rarely survives on the scraped pages, so color mentions are the
// only signal; with no mention, no divisions are reported.
func divisionsFromText(doc *goquery.Document, standings []race.Standing, races []race.RaceResult) []race.Division {
	m := divisionRe.FindStringSubmatch(doc.Text())
	if m == nil {
		return nil
	}
	name := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])

	seen := make(map[string]bool)
	var sails []string
	add := func(sail string) {
		if sail != "" && !seen[sail] {
			seen[sail] = true
			sails = append(sails, sail)
		}
	}
	for _, s := range standings {
		add(s.SailNumber)
	}
	for _, r := range races {
		for _, e := range r.Results {
			add(e.SailNumber)
		}
	}
	if len(sails) == 0 {
		return nil
	}
	return []race.Division{{Name: name, Competitors: sails}}
}
