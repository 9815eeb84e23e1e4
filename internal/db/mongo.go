package db

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store owns one client and the database every step runs against.
type Store struct {
	client    *mongo.Client
	database  *mongo.Database
	closeOnce sync.Once
	closeErr  error
}

// Connect dials uri and pings the primary. A client that fails the ping is
// disconnected before the error is returned.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongodb")
	}
	return NewStore(client, dbName), nil
}

// NewStore wraps an already connected client.
func NewStore(client *mongo.Client, dbName string) *Store {
	return &Store{
		client:   client,
		database: client.Database(dbName),
	}
}

func (s *Store) Database() *mongo.Database {
	return s.database
}

func (s *Store) Collection(name string) *mongo.Collection {
	return s.database.Collection(name)
}

// Close disconnects the client. Later calls return the first result.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if err := s.client.Disconnect(ctx); err != nil {
			s.closeErr = errors.Wrap(err, "disconnect mongodb")
		}
	})
	return s.closeErr
}
