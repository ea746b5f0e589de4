package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regattahq/raceboard/internal/race"
)

func TestExtractSailNumber(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"spaced", "HKG 123", "HKG 123", true},
		{"compact", "HKG123", "HKG 123", true},
		{"embedded", "boat GBR45 entry", "GBR 45", true},
		{"two letter code", "CN 7", "CN 7", true},
		{"four digits", "AUS 9999", "AUS 9999", true},
		{"lowercase code rejected", "hkg 123", "", false},
		{"no digits", "RHKYC", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractSailNumber(tc.input)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestStatusToken(t *testing.T) {
	for _, tok := range []string{"DNF", "DNS", "DSQ", "OCS", "BFD", "RET", "DNC"} {
		got, ok := StatusToken(tok)
		require.True(t, ok)
		require.Equal(t, race.Status(tok), got)
	}

	got, ok := StatusToken("dnf")
	require.True(t, ok, "status tokens match case-insensitively")
	require.Equal(t, race.StatusDNF, got)

	_, ok = StatusToken("undnfinished") // needs a word boundary
	require.False(t, ok)
	_, ok = StatusToken("12.5")
	require.False(t, ok)
}

func TestFirstNumber(t *testing.T) {
	cases := []struct {
		input string
		want  float64
		nil_  bool
	}{
		{"12", 12, false},
		{"12.5 pts", 12.5, false},
		{"score: 3 (discarded)", 3, false},
		{"no digits here", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got := FirstNumber(tc.input)
		if tc.nil_ {
			require.Nil(t, got, tc.input)
			continue
		}
		require.NotNil(t, got, tc.input)
		require.Equal(t, tc.want, *got)
	}
}

func TestParseFinishRowFullRow(t *testing.T) {
	entry, diag := ParseFinishRow(
		[]string{"1", "HKG 123", "J. Smith", "A. Lee", "RHKYC", "DNF", "12"}, 0)
	require.Nil(t, diag)
	require.NotNil(t, entry)

	require.NotNil(t, entry.Position)
	require.Equal(t, 1, *entry.Position)
	require.Equal(t, "HKG 123", entry.SailNumber)
	require.Equal(t, "J. Smith", entry.HelmName)
	require.Equal(t, "A. Lee", entry.CrewName)
	require.Equal(t, "RHKYC", entry.Club)
	require.Equal(t, race.StatusDNF, entry.Status)
	require.Equal(t, float64(race.PenaltyPoints), entry.Points)
}

func TestParseFinishRowCleanFinish(t *testing.T) {
	entry, diag := ParseFinishRow([]string{"2", "GBR45", "P. Jones", "(HHYC)", "4"}, 3)
	require.Nil(t, diag)
	require.Equal(t, "GBR 45", entry.SailNumber)
	require.Equal(t, race.StatusFinished, entry.Status)
	require.Equal(t, 4.0, entry.Points)
	require.Equal(t, "HHYC", entry.Club, "parenthetical reads as club")
	require.Equal(t, "P. Jones", entry.HelmName)
}

func TestParseFinishRowNoSailNumberSkipped(t *testing.T) {
	entry, diag := ParseFinishRow([]string{"1", "J. Smith", "RHKYC", "5"}, 7)
	require.Nil(t, entry)
	require.NotNil(t, diag)
	require.Equal(t, 7, diag.Row)
	require.Equal(t, "no sail number", diag.Reason)
}

func TestParseFinishRowEmpty(t *testing.T) {
	entry, diag := ParseFinishRow([]string{"", "  ", ""}, 2)
	require.Nil(t, entry)
	require.NotNil(t, diag)
	require.Equal(t, "empty row", diag.Reason)
}

func TestParseStandingRowWithHeaderContext(t *testing.T) {
	// Columns: pos, sail, helm, R1..R3, total, net. The score columns
	// come from the header; total and net (16, 10) must not leak into
	// the race scores.
	ctx := RowContext{ScoreColumns: []int{3, 4, 5}}
	standing, diag := ParseStandingRow(
		[]string{"1", "HKG 123", "J. Smith", "3", "[6]", "1", "16", "10"}, ctx, 0)
	require.Nil(t, diag)
	require.Equal(t, 1, standing.Position)
	require.Equal(t, "HKG 123", standing.SailNumber)
	require.Equal(t, "J. Smith", standing.HelmName)

	require.Len(t, standing.RaceScores, 3)
	require.Equal(t, 3.0, standing.RaceScores[0].Points)
	require.False(t, standing.RaceScores[0].IsDiscarded)
	require.Equal(t, 6.0, standing.RaceScores[1].Points)
	require.True(t, standing.RaceScores[1].IsDiscarded, "bracketed cell is a lexical discard")
	require.Equal(t, 1.0, standing.RaceScores[2].Points)
}

func TestParseStandingRowStatusScore(t *testing.T) {
	ctx := RowContext{ScoreColumns: []int{2, 3}}
	standing, diag := ParseStandingRow([]string{"4", "AUS 7", "DNF", "2"}, ctx, 0)
	require.Nil(t, diag)
	require.Len(t, standing.RaceScores, 2)
	require.Equal(t, float64(race.PenaltyPoints), standing.RaceScores[0].Points)
	require.Equal(t, race.StatusDNF, standing.RaceScores[0].Status)
	require.Equal(t, 2.0, standing.RaceScores[1].Points)
}

func TestParseScoreCell(t *testing.T) {
	score, ok := parseScoreCell("(999)")
	require.True(t, ok)
	require.True(t, score.IsDiscarded)
	require.Equal(t, 999.0, score.Points)

	score, ok = parseScoreCell("[DNC]")
	require.True(t, ok)
	require.True(t, score.IsDiscarded)
	require.Equal(t, race.StatusDNC, score.Status)
	require.Equal(t, float64(race.PenaltyPoints), score.Points)

	_, ok = parseScoreCell("J. Smith")
	require.False(t, ok)
}
