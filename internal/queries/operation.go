package queries

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Kind string

const (
	KindFind        Kind = "find"
	KindUpdateOne   Kind = "update-one"
	KindDeleteOne   Kind = "delete-one"
	KindAggregate   Kind = "aggregate"
	KindCreateIndex Kind = "create-index"
	KindExplain     Kind = "explain"
)

// Class tells a caller whether running an operation changes the collection.
type Class string

const (
	ClassRead  Class = "read"
	ClassWrite Class = "write"
	ClassAdmin Class = "admin"
)

var kindClasses = map[Kind]Class{
	KindFind:        ClassRead,
	KindAggregate:   ClassRead,
	KindExplain:     ClassRead,
	KindUpdateOne:   ClassWrite,
	KindDeleteOne:   ClassWrite,
	KindCreateIndex: ClassAdmin,
}

// ClassOf returns the class of k, and false for an unknown kind.
func ClassOf(k Kind) (Class, bool) {
	c, ok := kindClasses[k]
	return c, ok
}

const DefaultVerbosity = "executionStats"

// Operation describes one round trip against the books collection.
type Operation struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`

	// Confirmation is printed instead of a result for create-index.
	Confirmation string `json:"-"`

	Filter     bson.D         `json:"-"`
	Projection bson.D         `json:"-"`
	Sort       bson.D         `json:"-"`
	Skip       *int64         `json:"-"`
	Limit      *int64         `json:"-"`
	Update     bson.D         `json:"-"`
	Pipeline   mongo.Pipeline `json:"-"`
	Keys       bson.D         `json:"-"`
	Verbosity  string         `json:"-"`
}

func (op Operation) Class() Class {
	c, _ := ClassOf(op.Kind)
	return c
}

// Mutates reports whether the operation changes collection data or indexes.
func (op Operation) Mutates() bool {
	return op.Class() != ClassRead
}

func (op Operation) Validate() error {
	if op.Name == "" {
		return errors.New("operation has no name")
	}
	if _, ok := ClassOf(op.Kind); !ok {
		return errors.Errorf("%s: unknown operation kind %q", op.Name, op.Kind)
	}
	if op.Skip != nil && *op.Skip < 0 {
		return errors.Errorf("%s: negative skip %d", op.Name, *op.Skip)
	}
	if op.Limit != nil && *op.Limit < 0 {
		return errors.Errorf("%s: negative limit %d", op.Name, *op.Limit)
	}

	switch op.Kind {
	case KindFind, KindDeleteOne, KindExplain:
		if op.Filter == nil {
			return errors.Errorf("%s: %s requires a filter", op.Name, op.Kind)
		}
	case KindUpdateOne:
		if op.Filter == nil || len(op.Update) == 0 {
			return errors.Errorf("%s: update-one requires a filter and an update", op.Name)
		}
	case KindAggregate:
		if len(op.Pipeline) == 0 {
			return errors.Errorf("%s: aggregate requires a pipeline", op.Name)
		}
	case KindCreateIndex:
		if len(op.Keys) == 0 {
			return errors.Errorf("%s: create-index requires keys", op.Name)
		}
	}
	return nil
}

// Result is what one executed operation produced. Which fields are set
// depends on Kind; counts are always encoded, zero included.
type Result struct {
	Step      int      `json:"step"`
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Kind      Kind     `json:"kind"`
	Documents []bson.M `json:"documents"`
	Matched   int64    `json:"matched"`
	Modified  int64    `json:"modified"`
	Deleted   int64    `json:"deleted"`
	IndexName string   `json:"index_name,omitempty"`
	Plan      bson.M   `json:"plan,omitempty"`
}

func int64Ptr(v int64) *int64 {
	return &v
}
