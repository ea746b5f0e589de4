// Package mongo implements the persistence writer against MongoDB.
// All writes are batched; races and standings are replaced wholesale,
// competitors and documents are merge-upserts, notices are
// append-only.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/regattahq/raceboard/internal/race"
)

// Collection names. Documents are written twice: into the global
// collection and into the event-scoped one, supporting both "all
// documents" and "this event's documents" query patterns.
const (
	CollEvents           = "events"
	CollEventRaces       = "event_races"
	CollEventStandings   = "event_standings"
	CollEventCompetitors = "event_competitors"
	CollEventDocuments   = "event_documents"
	CollDocuments        = "documents"
	CollDocumentContent  = "document_content"
	CollNotices          = "notices"
)

// Config controls the Mongo connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store writes normalized race entities into Mongo.
type Store struct {
	db *mongo.Database
}

// Connect dials Mongo and pings it to verify the connection.
func Connect(ctx context.Context, cfg Config) (*Store, *mongo.Client, error) {
	if cfg.URI == "" {
		return nil, nil, fmt.Errorf("mongo.uri is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client.Database(cfg.Database)), client, nil
}

// New wraps an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// SaveEventDetails upserts the event header document.
func (s *Store) SaveEventDetails(ctx context.Context, event race.EventDetails) error {
	update := bson.M{
		"$set":         toFlatDoc(event),
		"$currentDate": bson.M{"updatedAt": true},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.db.Collection(CollEvents).
		UpdateOne(ctx, bson.M{"_id": event.ID}, update, opts); err != nil {
		return fmt.Errorf("save event %s: %w", event.ID, err)
	}
	return nil
}

// ReplaceRaces overwrites the event's race results wholesale. The
// delete and insert are not one atomic unit; a crash in between leaves
// a partially-updated event, which the next idempotent scrape heals.
func (s *Store) ReplaceRaces(ctx context.Context, eventID string, races []race.RaceResult) error {
	coll := s.db.Collection(CollEventRaces)
	if _, err := coll.DeleteMany(ctx, bson.M{"eventId": eventID}); err != nil {
		return fmt.Errorf("clear races for %s: %w", eventID, err)
	}
	if len(races) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(races))
	for _, r := range races {
		id := fmt.Sprintf("%s_race_%d", eventID, r.RaceNumber)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{
				"$set":         bson.M{"eventId": eventID, "race": r},
				"$currentDate": bson.M{"updatedAt": true},
			}).
			SetUpsert(true))
	}
	if _, err := coll.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("write races for %s: %w", eventID, err)
	}
	return nil
}

// ReplaceStandings overwrites the event's standings wholesale.
func (s *Store) ReplaceStandings(ctx context.Context, eventID string, standings []race.Standing) error {
	coll := s.db.Collection(CollEventStandings)
	if _, err := coll.DeleteMany(ctx, bson.M{"eventId": eventID}); err != nil {
		return fmt.Errorf("clear standings for %s: %w", eventID, err)
	}
	if len(standings) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(standings))
	for _, st := range standings {
		id := fmt.Sprintf("%s_standing_%s", eventID, race.CompetitorID(st.SailNumber))
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{
				"$set":         bson.M{"eventId": eventID, "standing": st},
				"$currentDate": bson.M{"updatedAt": true},
			}).
			SetUpsert(true))
	}
	if _, err := coll.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("write standings for %s: %w", eventID, err)
	}
	return nil
}

// UpsertCompetitors merge-upserts competitors keyed by their derived
// ID; repeated scrapes only update changed fields and refresh
// updatedAt.
func (s *Store) UpsertCompetitors(ctx context.Context, eventID string, competitors []race.Competitor) error {
	if len(competitors) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(competitors))
	for _, c := range competitors {
		doc := toFlatDoc(c)
		doc["eventId"] = eventID
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": c.ID}).
			SetUpdate(bson.M{
				"$set":         doc,
				"$currentDate": bson.M{"updatedAt": true},
			}).
			SetUpsert(true))
	}
	if _, err := s.db.Collection(CollEventCompetitors).BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("write competitors for %s: %w", eventID, err)
	}
	return nil
}

// UpsertDocuments merge-upserts event documents into both the global
// and the event-scoped collections.
func (s *Store) UpsertDocuments(ctx context.Context, eventID string, documents []race.EventDocument) error {
	if len(documents) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(documents))
	for _, d := range documents {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": d.ID}).
			SetUpdate(bson.M{
				"$set":         toFlatDoc(d),
				"$currentDate": bson.M{"updatedAt": true},
			}).
			SetUpsert(true))
	}
	if _, err := s.db.Collection(CollDocuments).BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("write documents: %w", err)
	}
	if _, err := s.db.Collection(CollEventDocuments).BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("write event documents for %s: %w", eventID, err)
	}
	return nil
}

// AppendNotices inserts only notices whose ID is not already present;
// existing IDs are skipped entirely so no update ever re-triggers a
// notification. The check-then-insert race with a concurrent scrape
// is tolerated: worst case is a rare duplicate notice.
func (s *Store) AppendNotices(ctx context.Context, notices []race.Notice) ([]race.Notice, error) {
	if len(notices) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(notices))
	for _, n := range notices {
		ids = append(ids, n.ID)
	}

	coll := s.db.Collection(CollNotices)
	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("check existing notices: %w", err)
	}
	existing := make(map[string]bool)
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		existing[doc.ID] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("scan existing notices: %w", err)
	}

	var fresh []race.Notice
	var docs []any
	for _, n := range notices {
		if existing[n.ID] {
			continue
		}
		fresh = append(fresh, n)
		docs = append(docs, n)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	if _, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return nil, fmt.Errorf("insert notices: %w", err)
	}
	return fresh, nil
}

// SaveDocumentContent upserts the content-pipeline record.
func (s *Store) SaveDocumentContent(ctx context.Context, content race.DocumentContent) error {
	update := bson.M{
		"$set":         toFlatDoc(content),
		"$currentDate": bson.M{"updatedAt": true},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.db.Collection(CollDocumentContent).
		UpdateOne(ctx, bson.M{"_id": content.DocumentID}, update, opts); err != nil {
		return fmt.Errorf("save document content %s: %w", content.DocumentID, err)
	}
	return nil
}

// toFlatDoc marshals a struct to bson.M so $set merges field by field
// instead of replacing the whole document.
func toFlatDoc(v any) bson.M {
	raw, err := bson.Marshal(v)
	if err != nil {
		return bson.M{}
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return bson.M{}
	}
	delete(doc, "_id") // immutable in Mongo updates
	return doc
}
