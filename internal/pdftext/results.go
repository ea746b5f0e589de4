package pdftext

import (
	"regexp"
	"strconv"
	"strings"
)

// BoatLine is one boat's scores recovered from PDF-extracted text.
type BoatLine struct {
	Name       string
	SailNumber string
	Scores     []float64
}

var (
	letterRe     = regexp.MustCompile(`[A-Za-z]{2,}`)
	numberTokRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	sailInLineRe = regexp.MustCompile(`([A-Z]{2,3})\s?(\d{1,4})`)
	pointsWordRe = regexp.MustCompile(`(?i)\bpoints?\b`)
)

// lookahead is how many following lines may hold a boat's score run
// before the name line is dismissed.
const lookahead = 5

// ParseResults scans PDF text line by line. A line with letters is a
// boat entry when a points marker or a numeric run appears within the
// next few lines; the numeric tokens that follow become its race-score
// sequence.
func ParseResults(text string) []BoatLine {
	lines := strings.Split(text, "\n")
	var out []BoatLine

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || !letterRe.MatchString(line) {
			continue
		}

		scores, consumed := scoresNear(lines, i)
		if scores == nil {
			continue
		}

		boat := BoatLine{Name: nameOf(line), Scores: scores}
		if m := sailInLineRe.FindStringSubmatch(line); m != nil {
			boat.SailNumber = m[1] + " " + m[2]
		}
		if boat.Name == "" && boat.SailNumber == "" {
			continue
		}
		out = append(out, boat)
		i += consumed
	}
	return out
}

// scoresNear collects the numeric run starting on the name line or
// within the lookahead window. Returns nil when no run qualifies.
func scoresNear(lines []string, start int) (scores []float64, consumed int) {
	// Numbers trailing the name on its own line count first.
	scores = numbersIn(trailingDigits(lines[start]))

	found := len(scores) >= 3
	for j := start + 1; j <= start+lookahead && j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			continue
		}
		nums := numbersIn(line)
		if pointsWordRe.MatchString(line) || len(nums) >= 3 {
			scores = append(scores, nums...)
			consumed = j - start
			found = true
			continue
		}
		if letterRe.MatchString(line) {
			break // next boat's name line
		}
		scores = append(scores, nums...)
		consumed = j - start
	}

	if !found || len(scores) == 0 {
		return nil, 0
	}
	return scores, consumed
}

// trailingDigits returns the part of a name line after the last
// alphabetic run, so sail-number digits are not counted as scores.
func trailingDigits(line string) string {
	locs := letterRe.FindAllStringIndex(line, -1)
	if locs == nil {
		return line
	}
	last := locs[len(locs)-1]
	rest := line[last[1]:]
	// Skip the digits glued to a sail-number prefix.
	if m := sailInLineRe.FindStringIndex(line); m != nil && m[1] > last[0] {
		return line[m[1]:]
	}
	return rest
}

func nameOf(line string) string {
	cleaned := sailInLineRe.ReplaceAllString(line, " ")
	cleaned = numberTokRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if !letterRe.MatchString(cleaned) {
		return ""
	}
	return cleaned
}

func numbersIn(s string) []float64 {
	var out []float64
	for _, tok := range numberTokRe.FindAllString(s, -1) {
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}
