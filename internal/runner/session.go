package runner

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"plp-bookstore/internal/db"
	"plp-bookstore/internal/utils"
)

// Session is the connection a run borrows. Close must be safe to call once
// the run is over, whether or not it succeeded.
type Session interface {
	Collection() *mongo.Collection
	Close(ctx context.Context) error
}

// Opener acquires a Session. On error it must not leave anything open.
type Opener func(ctx context.Context) (Session, error)

// WithSession opens a session, hands it to fn and closes it exactly once on
// every path out. A close error is logged and never replaces fn's error.
func WithSession(ctx context.Context, open Opener, logger *zap.Logger, fn func(Session) error) error {
	sess, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(context.Background()); cerr != nil && logger != nil {
			logger.Warn("close session failed", zap.Error(cerr))
		}
	}()
	return fn(sess)
}

// Execute is the whole run: acquire, run every step, release.
func (r *Runner) Execute(ctx context.Context, open Opener) error {
	return WithSession(ctx, open, r.logger(), func(sess Session) error {
		coll := sess.Collection()
		if r.Audit == nil && r.AuditCollection != "" {
			r.Audit = &utils.Logger{Collection: coll.Database().Collection(r.AuditCollection)}
		}
		_, err := r.Run(ctx, coll)
		return err
	})
}

type storeSession struct {
	store *db.Store
	coll  string
}

func (s storeSession) Collection() *mongo.Collection {
	return s.store.Collection(s.coll)
}

func (s storeSession) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

// StoreOpener connects to uri and binds the session to dbName.collName.
func StoreOpener(uri, dbName, collName string) Opener {
	return func(ctx context.Context) (Session, error) {
		store, err := db.Connect(ctx, uri, dbName)
		if err != nil {
			return nil, err
		}
		return storeSession{store: store, coll: collName}, nil
	}
}
