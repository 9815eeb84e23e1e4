package queries

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Execute runs op against coll and collects what the server returned.
func Execute(ctx context.Context, coll *mongo.Collection, op Operation) (Result, error) {
	if err := op.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{Name: op.Name, Label: op.Label, Kind: op.Kind}
	var err error
	switch op.Kind {
	case KindFind:
		res.Documents, err = find(ctx, coll, op)
	case KindUpdateOne:
		var ur *mongo.UpdateResult
		ur, err = coll.UpdateOne(ctx, op.Filter, op.Update)
		if err == nil {
			res.Matched, res.Modified = ur.MatchedCount, ur.ModifiedCount
		}
	case KindDeleteOne:
		var dr *mongo.DeleteResult
		dr, err = coll.DeleteOne(ctx, op.Filter)
		if err == nil {
			res.Deleted = dr.DeletedCount
		}
	case KindAggregate:
		res.Documents, err = aggregate(ctx, coll, op)
	case KindCreateIndex:
		res.IndexName, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: op.Keys})
	case KindExplain:
		res.Plan, err = explain(ctx, coll, op)
	}
	if err != nil {
		return Result{}, errors.Wrapf(err, "%s %s", op.Kind, op.Name)
	}
	return res, nil
}

func find(ctx context.Context, coll *mongo.Collection, op Operation) ([]bson.M, error) {
	opts := options.Find()
	if op.Projection != nil {
		opts.SetProjection(op.Projection)
	}
	if op.Sort != nil {
		opts.SetSort(op.Sort)
	}
	if op.Skip != nil {
		opts.SetSkip(*op.Skip)
	}
	if op.Limit != nil {
		opts.SetLimit(*op.Limit)
	}

	cursor, err := coll.Find(ctx, op.Filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func aggregate(ctx context.Context, coll *mongo.Collection, op Operation) ([]bson.M, error) {
	cursor, err := coll.Aggregate(ctx, op.Pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ExplainCommand builds the explain command for a find with op's filter.
func ExplainCommand(collName string, op Operation) bson.D {
	verbosity := op.Verbosity
	if verbosity == "" {
		verbosity = DefaultVerbosity
	}
	return bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: collName},
			{Key: "filter", Value: op.Filter},
		}},
		{Key: "verbosity", Value: verbosity},
	}
}

func explain(ctx context.Context, coll *mongo.Collection, op Operation) (bson.M, error) {
	var plan bson.M
	cmd := ExplainCommand(coll.Name(), op)
	if err := coll.Database().RunCommand(ctx, cmd).Decode(&plan); err != nil {
		return nil, err
	}
	return plan, nil
}
