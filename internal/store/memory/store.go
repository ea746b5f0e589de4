// Package memory provides an in-process DocumentStore used by tests
// and by local runs without a Mongo instance.
package memory

import (
	"context"
	"sync"

	"github.com/regattahq/raceboard/internal/race"
)

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu sync.Mutex

	Events      map[string]race.EventDetails
	Races       map[string][]race.RaceResult
	Standings   map[string][]race.Standing
	Competitors map[string]map[string]race.Competitor
	Documents   map[string]race.EventDocument
	EventDocs   map[string]map[string]race.EventDocument
	Notices     map[string]race.Notice
	Contents    map[string]race.DocumentContent
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Events:      make(map[string]race.EventDetails),
		Races:       make(map[string][]race.RaceResult),
		Standings:   make(map[string][]race.Standing),
		Competitors: make(map[string]map[string]race.Competitor),
		Documents:   make(map[string]race.EventDocument),
		EventDocs:   make(map[string]map[string]race.EventDocument),
		Notices:     make(map[string]race.Notice),
		Contents:    make(map[string]race.DocumentContent),
	}
}

func (s *Store) SaveEventDetails(_ context.Context, event race.EventDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events[event.ID] = event
	return nil
}

func (s *Store) ReplaceRaces(_ context.Context, eventID string, races []race.RaceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Races[eventID] = append([]race.RaceResult(nil), races...)
	return nil
}

func (s *Store) ReplaceStandings(_ context.Context, eventID string, standings []race.Standing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Standings[eventID] = append([]race.Standing(nil), standings...)
	return nil
}

func (s *Store) UpsertCompetitors(_ context.Context, eventID string, competitors []race.Competitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.Competitors[eventID]
	if byID == nil {
		byID = make(map[string]race.Competitor)
		s.Competitors[eventID] = byID
	}
	for _, c := range competitors {
		byID[c.ID] = c
	}
	return nil
}

func (s *Store) UpsertDocuments(_ context.Context, eventID string, documents []race.EventDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.EventDocs[eventID]
	if byID == nil {
		byID = make(map[string]race.EventDocument)
		s.EventDocs[eventID] = byID
	}
	for _, d := range documents {
		s.Documents[d.ID] = d
		byID[d.ID] = d
	}
	return nil
}

func (s *Store) AppendNotices(_ context.Context, notices []race.Notice) ([]race.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fresh []race.Notice
	for _, n := range notices {
		if _, ok := s.Notices[n.ID]; ok {
			continue
		}
		s.Notices[n.ID] = n
		fresh = append(fresh, n)
	}
	return fresh, nil
}

func (s *Store) SaveDocumentContent(_ context.Context, content race.DocumentContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Contents[content.DocumentID] = content
	return nil
}
