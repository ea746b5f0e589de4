package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regattahq/raceboard/internal/race"
)

func TestAppendNoticesIsAppendOnly(t *testing.T) {
	s := New()
	ctx := context.Background()

	batch := []race.Notice{
		{ID: "n1", EventID: "e1", Title: "first"},
		{ID: "n2", EventID: "e1", Title: "second"},
	}
	fresh, err := s.AppendNotices(ctx, batch)
	require.NoError(t, err)
	require.Len(t, fresh, 2)

	// Same IDs again: nothing inserted, nothing updated.
	batch[0].Title = "rewritten"
	fresh, err = s.AppendNotices(ctx, batch)
	require.NoError(t, err)
	require.Empty(t, fresh)
	require.Equal(t, "first", s.Notices["n1"].Title)

	// A mixed batch inserts only the unseen ID.
	fresh, err = s.AppendNotices(ctx, []race.Notice{
		{ID: "n2", Title: "dupe"},
		{ID: "n3", Title: "third"},
	})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.Equal(t, "n3", fresh[0].ID)
}

func TestReplaceRacesIsWholesale(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.ReplaceRaces(ctx, "e1", []race.RaceResult{
		{RaceNumber: 1}, {RaceNumber: 2},
	}))
	require.NoError(t, s.ReplaceRaces(ctx, "e1", []race.RaceResult{
		{RaceNumber: 3},
	}))

	require.Len(t, s.Races["e1"], 1)
	require.Equal(t, 3, s.Races["e1"][0].RaceNumber)
}

func TestUpsertCompetitorsMerges(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.UpsertCompetitors(ctx, "e1", []race.Competitor{
		{ID: race.CompetitorID("HKG 123"), SailNumber: "HKG 123", HelmName: "J. Smith"},
	}))
	require.NoError(t, s.UpsertCompetitors(ctx, "e1", []race.Competitor{
		{ID: race.CompetitorID("HKG 123"), SailNumber: "HKG 123", HelmName: "J. Smith", Club: "RHKYC"},
		{ID: race.CompetitorID("GBR 45"), SailNumber: "GBR 45"},
	}))

	require.Len(t, s.Competitors["e1"], 2)
	require.Equal(t, "RHKYC", s.Competitors["e1"]["comp_HKG_123"].Club)
}

func TestUpsertDocumentsDualWrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	doc := race.EventDocument{ID: "doc_abc", EventID: "e1", Title: "Notice of Race"}
	require.NoError(t, s.UpsertDocuments(ctx, "e1", []race.EventDocument{doc}))

	require.Contains(t, s.Documents, "doc_abc", "global collection")
	require.Contains(t, s.EventDocs["e1"], "doc_abc", "event-scoped collection")
}
