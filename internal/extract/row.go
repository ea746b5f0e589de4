package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/regattahq/raceboard/internal/race"
)

var (
	sailNumberRe = regexp.MustCompile(`([A-Z]{2,3})\s?(\d{1,4})`)
	statusRe     = regexp.MustCompile(`(?i)\b(DNF|DNS|DSQ|OCS|BFD|RET|DNC)\b`)
	numberRe     = regexp.MustCompile(`\d+(?:\.\d+)?`)
	pureNumberRe = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	clubTokenRe  = regexp.MustCompile(`^[A-Z]{2,6}$`)
	bracketedRe  = regexp.MustCompile(`^[\(\[](.+)[\)\]]$`)
)

// ExtractSailNumber finds the first sail number in s and returns it
// normalized to "<CODE> <DIGITS>" with exactly one separating space.
func ExtractSailNumber(s string) (string, bool) {
	m := sailNumberRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1] + " " + m[2], true
}

// StatusToken returns the non-finish status found anywhere in s.
func StatusToken(s string) (race.Status, bool) {
	m := statusRe.FindString(s)
	if m == "" {
		return "", false
	}
	return race.Status(strings.ToUpper(m)), true
}

// FirstNumber extracts the first number-like substring of s. A cell
// with no number yields nil, never an error.
func FirstNumber(s string) *float64 {
	m := numberRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseFinishRow converts a row of cell texts into a FinishEntry.
// The sail number is the hard gate: without one the row is skipped and
// a diagnostic records why. A status token anywhere in the row
// overrides the numeric score and fixes points to the 999 sentinel.
func ParseFinishRow(cells []string, rowIndex int) (*race.FinishEntry, *race.ParseDiagnostic) {
	cells = cleanCells(cells)
	if len(cells) == 0 {
		return nil, &race.ParseDiagnostic{Row: rowIndex, Reason: "empty row"}
	}

	entry := race.FinishEntry{Status: race.StatusFinished}

	// A leading pure-numeric column is the rank.
	rest := cells
	if pureNumberRe.MatchString(cells[0]) {
		if pos, err := strconv.Atoi(numberRe.FindString(cells[0])); err == nil {
			entry.Position = &pos
		}
		rest = cells[1:]
	}

	sailIdx := -1
	for i, c := range rest {
		if sail, ok := ExtractSailNumber(c); ok {
			entry.SailNumber = sail
			sailIdx = i
			break
		}
	}
	if sailIdx < 0 {
		return nil, &race.ParseDiagnostic{Row: rowIndex, Reason: "no sail number"}
	}

	var points *float64
	for i, c := range rest {
		if i == sailIdx {
			continue
		}
		if status, ok := StatusToken(c); ok {
			entry.Status = status
			continue
		}
		switch {
		case pureNumberRe.MatchString(c):
			points = FirstNumber(c)
		case isClubLike(c):
			if entry.Club == "" {
				entry.Club = stripBrackets(c)
			}
		case entry.HelmName == "":
			entry.HelmName = c
		case entry.CrewName == "":
			entry.CrewName = c
		}
	}

	if entry.Status != race.StatusFinished {
		entry.Points = race.PenaltyPoints
	} else if points != nil {
		entry.Points = *points
	}
	return &entry, nil
}

// RowContext carries what the table extractor learned from headers.
// ScoreColumns are cell indices (into the original row) holding race
// scores; when empty, every numeric cell is treated as a score.
type RowContext struct {
	ScoreColumns []int
}

// ParseStandingRow converts a row of cell texts into a Standing with
// its per-race scores. Bracketed score cells are lexically marked as
// discards with the brackets stripped before numeric parsing. Total
// and net columns in the source are ignored; both are recomputed.
func ParseStandingRow(cells []string, rowCtx RowContext, rowIndex int) (*race.Standing, *race.ParseDiagnostic) {
	cells = cleanCells(cells)
	if len(cells) == 0 {
		return nil, &race.ParseDiagnostic{Row: rowIndex, Reason: "empty row"}
	}

	scoreCol := make(map[int]bool, len(rowCtx.ScoreColumns))
	for _, i := range rowCtx.ScoreColumns {
		scoreCol[i] = true
	}

	standing := race.Standing{}
	offset := 0
	rest := cells
	if pureNumberRe.MatchString(cells[0]) && !scoreCol[0] {
		if pos, err := strconv.Atoi(numberRe.FindString(cells[0])); err == nil {
			standing.Position = pos
		}
		rest = cells[1:]
		offset = 1
	}

	sailIdx := -1
	for i, c := range rest {
		if sail, ok := ExtractSailNumber(c); ok {
			standing.SailNumber = sail
			sailIdx = i
			break
		}
	}
	if sailIdx < 0 {
		return nil, &race.ParseDiagnostic{Row: rowIndex, Reason: "no sail number"}
	}

	for i, c := range rest {
		if i == sailIdx {
			continue
		}
		if len(scoreCol) > 0 {
			if scoreCol[i+offset] {
				if score, ok := parseScoreCell(c); ok {
					standing.RaceScores = append(standing.RaceScores, score)
				}
				continue
			}
		} else if score, ok := parseScoreCell(c); ok {
			standing.RaceScores = append(standing.RaceScores, score)
			continue
		}
		switch {
		case isClubLike(c):
			if standing.Club == "" {
				standing.Club = stripBrackets(c)
			}
		case pureNumberRe.MatchString(c):
			// total/net column under header context; recomputed later
		case standing.HelmName == "":
			standing.HelmName = c
		case standing.CrewName == "":
			standing.CrewName = c
		}
	}
	return &standing, nil
}

// parseScoreCell parses a race-score cell: a bare number, a bracketed
// (discarded) number, or a status token.
func parseScoreCell(c string) (race.RaceScore, bool) {
	discarded := false
	if m := bracketedRe.FindStringSubmatch(c); m != nil {
		discarded = true
		c = strings.TrimSpace(m[1])
	}
	if status, ok := StatusToken(c); ok {
		return race.RaceScore{
			Points:      race.PenaltyPoints,
			IsDiscarded: discarded,
			Status:      status,
		}, true
	}
	if !pureNumberRe.MatchString(c) {
		return race.RaceScore{}, false
	}
	points := FirstNumber(c)
	if points == nil {
		return race.RaceScore{}, false
	}
	return race.RaceScore{
		Points:      *points,
		IsDiscarded: discarded,
		Status:      race.StatusFinished,
	}, true
}

// isClubLike reports whether a cell reads as a club/country code: a
// parenthetical, or a short all-caps token. Helm and crew names carry
// lowercase letters and never match.
func isClubLike(c string) bool {
	if bracketedRe.MatchString(c) {
		return true
	}
	return clubTokenRe.MatchString(c)
}

func stripBrackets(c string) string {
	if m := bracketedRe.FindStringSubmatch(c); m != nil {
		return strings.TrimSpace(m[1])
	}
	return c
}

func cleanCells(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, cleanText(c))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
