package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

const arangoCollection = "scan_cache"

// ArangoConfig locates the ArangoDB server backing an ArangoStore.
type ArangoConfig struct {
	URL      string
	User     string
	Password string
	Database string

	// ConnectAttempts bounds the connection retries made by NewArangoStore.
	ConnectAttempts int
}

// ArangoStore persists entries as documents in an ArangoDB collection.
type ArangoStore struct {
	db arangodb.Database
}

var _ Store = (*ArangoStore)(nil)

type arangoEntry struct {
	Link      string          `json:"link"`
	Data      *engine.Verdict `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// NewArangoStore connects with exponential backoff, then makes sure the
// database, the collection and a unique index on link exist.
func NewArangoStore(ctx context.Context, cfg ArangoConfig, logger *zap.Logger) (*ArangoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Database == "" {
		cfg.Database = "clauseguard"
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 5
	}

	var client arangodb.Client

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
		conn := connection.NewHttpConnection(connection.HttpConfiguration{
			Authentication: connection.NewBasicAuth(cfg.User, cfg.Password),
			Endpoint:       endpoint,
			ContentType:    connection.ApplicationJSON,
		})
		client = arangodb.NewClient(conn)

		info, err := client.Version(ctx)
		if err != nil {
			return err
		}
		logger.Info("connected to ArangoDB", zap.String("version", string(info.Version)))
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.ConnectAttempts)), ctx), func(err error, wait time.Duration) {
		logger.Warn("retrying ArangoDB connection", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return nil, fmt.Errorf("connect to ArangoDB at %s: %w", cfg.URL, err)
	}

	db, err := ensureDatabase(ctx, client, cfg.Database)
	if err != nil {
		return nil, err
	}
	col, err := ensureCollection(ctx, db, arangoCollection)
	if err != nil {
		return nil, err
	}
	unique := true
	if _, _, err := col.EnsurePersistentIndex(ctx, []string{"link"}, &arangodb.CreatePersistentIndexOptions{
		Unique: &unique,
		Name:   "scan_cache_link",
	}); err != nil {
		return nil, fmt.Errorf("create link index: %w", err)
	}

	return &ArangoStore{db: db}, nil
}

func ensureDatabase(ctx context.Context, client arangodb.Client, name string) (arangodb.Database, error) {
	dbs, err := client.Databases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	for _, info := range dbs {
		if info.Name() == name {
			var options arangodb.GetDatabaseOptions
			return client.GetDatabase(ctx, name, &options)
		}
	}
	return client.CreateDatabase(ctx, name, nil)
}

func ensureCollection(ctx context.Context, db arangodb.Database, name string) (arangodb.Collection, error) {
	exists, err := db.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		var options arangodb.GetCollectionOptions
		return db.GetCollection(ctx, name, &options)
	}
	return db.CreateCollectionV2(ctx, name, nil)
}

// Get implements Store.
func (s *ArangoStore) Get(ctx context.Context, key string) (*Entry, error) {
	query := `FOR d IN scan_cache FILTER d.link == @link LIMIT 1 RETURN d`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"link": key},
	})
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, ErrNotFound
	}
	var doc arangoEntry
	if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, doc.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	return &Entry{Key: doc.Link, Data: doc.Data, Timestamp: ts}, nil
}

// Put implements Store.
func (s *ArangoStore) Put(ctx context.Context, entry Entry) error {
	query := `
		UPSERT { link: @link }
		INSERT { link: @link, data: @data, timestamp: @ts }
		UPDATE { data: @data, timestamp: @ts }
		IN scan_cache
	`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"link": entry.Key,
			"data": entry.Data,
			"ts":   entry.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return cursor.Close()
}

// Close implements Store. The HTTP connection needs no teardown.
func (s *ArangoStore) Close() error { return nil }
