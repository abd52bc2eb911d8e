package recordstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const defaultMongoCollection = "keys"

// validCollectionName matches safe MongoDB collection names.
var validCollectionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MongoOption configures a MongoStore.
type MongoOption func(*MongoStore)

// WithCollectionName sets the MongoDB collection name. Default: "keys".
func WithCollectionName(name string) MongoOption {
	return func(s *MongoStore) {
		s.collectionName = name
	}
}

// MongoStore implements RecordStore using MongoDB.
type MongoStore struct {
	collection     *mongo.Collection
	collectionName string
}

// NewMongoStore creates a new MongoDB-backed record store.
// It creates the unique index on the license key on initialization.
func NewMongoStore(ctx context.Context, db *mongo.Database, opts ...MongoOption) (*MongoStore, error) {
	s := &MongoStore{
		collectionName: defaultMongoCollection,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !validCollectionName.MatchString(s.collectionName) {
		return nil, fmt.Errorf("invalid collection name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", s.collectionName)
	}
	s.collection = db.Collection(s.collectionName)

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) Find(ctx context.Context, key string) (*Record, error) {
	var doc Document
	err := s.collection.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return doc.Record()
}

// UpdateIfFieldEmpty relies on the single-document atomicity of UpdateOne:
// the emptiness condition is part of the filter, so only one of several
// concurrent writers can match.
func (s *MongoStore) UpdateIfFieldEmpty(ctx context.Context, key string, field Field, value string) (bool, error) {
	if value == "" {
		return false, fmt.Errorf("update %s: %w", field, ErrEmptyValue)
	}
	filter := bson.M{"key": key}
	switch field {
	case FieldHWID:
		filter["hwid"] = ""
	case FieldActivationDate:
		if _, err := ParseDate(value); err != nil {
			return false, err
		}
		// null matches both a missing field and an explicit null.
		filter["activation_date"] = nil
	default:
		return false, fmt.Errorf("update %s: unsupported field", field)
	}

	result, err := s.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{field.String(): value},
	})
	if err != nil {
		return false, fmt.Errorf("update %s: %w", field, err)
	}
	return result.MatchedCount == 1, nil
}

// Insert stores a new document. Issuing keys is outside this package's
// job; Insert exists for seeding and tests.
func (s *MongoStore) Insert(ctx context.Context, doc Document) error {
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.collection.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(_ context.Context) error {
	return nil // caller manages the mongo.Client lifecycle
}
