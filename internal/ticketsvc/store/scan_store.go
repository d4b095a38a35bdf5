package store

import (
	"context"
	"fmt"

	"github.com/avvvet/ticket-services/internal/db"
	"github.com/avvvet/ticket-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const scanCollection = "scan_records"

// ScanStore archives raw QR payloads so the order of two-part codes can be
// checked against what the parser accepted. Records expire at ExpiresAt.
type ScanStore struct {
	collection *mongo.Collection
}

func NewScanStore(database *mongo.Database) *ScanStore {
	return &ScanStore{collection: database.Collection(scanCollection)}
}

func (s *ScanStore) EnsureIndexes(ctx context.Context) error {
	if err := db.CreateTTLIndexForCollection(ctx, s.collection.Database(), scanCollection); err != nil {
		return fmt.Errorf("create scan ttl index: %w", err)
	}
	return nil
}

func (s *ScanStore) RecordScan(ctx context.Context, rec models.ScanRecord) error {
	if _, err := s.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

// Recent returns the latest records of a session, newest first.
func (s *ScanStore) Recent(ctx context.Context, sessionID string, limit int64) ([]models.ScanRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find scan records: %w", err)
	}
	var out []models.ScanRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
