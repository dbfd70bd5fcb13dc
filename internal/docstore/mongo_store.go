package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (m *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storeError("get", collection, id, ErrNotFound)
		}
		return nil, storeError("get", collection, id, fmt.Errorf("failed to get document: %w", err))
	}

	delete(raw, "_id")
	return Document(raw), nil
}

// Set replaces the whole document, creating it if needed.
func (m *MongoStore) Set(ctx context.Context, collection, id string, fields Document) error {
	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = id

	opts := options.Replace().SetUpsert(true)
	_, err := m.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts)
	if err != nil {
		return storeError("set", collection, id, fmt.Errorf("failed to set document: %w", err))
	}
	return nil
}

// Update merges fields into an existing document.
func (m *MongoStore) Update(ctx context.Context, collection, id string, fields Document) error {
	set := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil
	}

	result, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return storeError("update", collection, id, fmt.Errorf("failed to update document: %w", err))
	}
	if result.MatchedCount == 0 {
		return storeError("update", collection, id, ErrNotFound)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, collection, id string) error {
	result, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storeError("delete", collection, id, fmt.Errorf("failed to delete document: %w", err))
	}
	if result.DeletedCount == 0 {
		return storeError("delete", collection, id, ErrNotFound)
	}
	return nil
}
