package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/CloudNativeWorks/hwlicense/hwlicense/recordstore"
	"github.com/CloudNativeWorks/hwlicense/internal/config"
)

// openedStore pairs a store with the release of the connection behind it.
type openedStore struct {
	recordstore.RecordStore
	release func(ctx context.Context) error
}

func (s *openedStore) Close(ctx context.Context) error {
	err := s.RecordStore.Close(ctx)
	if s.release != nil {
		err = errors.Join(err, s.release(ctx))
	}
	return err
}

// openStore connects to the configured backend and verifies it answers.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*openedStore, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	switch cfg.Backend {
	case config.BackendMongo:
		log.Info("Connecting to MongoDB", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
		client, err := mongo.Connect(options.Client().
			ApplyURI(cfg.MongoURI).
			SetServerSelectionTimeout(cfg.ConnectTimeout))
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		store, err := recordstore.NewMongoStore(ctx, client.Database(cfg.MongoDatabase),
			recordstore.WithCollectionName(cfg.MongoCollection))
		if err == nil {
			err = store.Ping(ctx)
		}
		if err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}
		return &openedStore{RecordStore: store, release: client.Disconnect}, nil

	case config.BackendPostgres:
		log.Info("Connecting to PostgreSQL", "table", cfg.PostgresTable)
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store, err := recordstore.NewPostgresStore(ctx, pool, recordstore.WithTableName(cfg.PostgresTable))
		if err != nil {
			pool.Close()
			return nil, err
		}
		release := func(context.Context) error {
			pool.Close()
			return nil
		}
		return &openedStore{RecordStore: store, release: release}, nil

	case config.BackendSQLite:
		log.Info("Opening SQLite database", "path", cfg.SQLitePath)
		store, err := recordstore.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &openedStore{RecordStore: store}, nil

	default:
		if cfg.SeedFile == "" {
			log.Warn("Memory backend started empty; every key will be reported as not found")
			return &openedStore{RecordStore: recordstore.NewMemoryStore()}, nil
		}
		store, err := recordstore.NewMemoryStoreFromFile(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		log.Info("Memory backend seeded", "file", cfg.SeedFile)
		return &openedStore{RecordStore: store}, nil
	}
}
