package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to mongoURI and returns the database named in its
// path.
func ConnectMongo(mongoURI string) (*mongo.Database, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("parse MongoDB URI: %w", err)
	}

	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		dbName = "tickets"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return client.Database(dbName), nil
}

// CreateTTLIndexForCollection expires documents at their expires_at field.
func CreateTTLIndexForCollection(ctx context.Context, db *mongo.Database, collectionName string) error {
	collection := db.Collection(collectionName)

	indexModel := mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0), // expire at the time stored in expires_at
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

func DisconnectMongo(db *mongo.Database) {
	if db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db.Client().Disconnect(ctx)
}
