package daemon

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"plp-bookstore/internal/models"
	"plp-bookstore/internal/utils"
)

type LogExporter struct {
	Coll     *mongo.Collection
	Logger   *zap.Logger
	Interval time.Duration
}

// Run exports pending audit entries every Interval until ctx is done.
func (l *LogExporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		if _, err := l.ExportOnce(ctx); err != nil {
			l.Logger.Warn("audit export failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ExportOnce ships every unexported entry and marks it exported.
func (l *LogExporter) ExportOnce(ctx context.Context) (int, error) {
	res, err := l.Coll.Find(ctx, bson.M{"exported": false})
	if err != nil {
		return 0, errors.Wrap(err, "find pending audit logs")
	}

	var logs []models.AuditLog
	if err := res.All(ctx, &logs); err != nil {
		return 0, errors.Wrap(err, "decode audit logs")
	}
	if len(logs) == 0 {
		return 0, nil
	}

	if err := utils.ExportData(l.Logger, logs); err != nil {
		return 0, err
	}

	updateIds := make([]primitive.ObjectID, 0, len(logs))
	for i := 0; i < len(logs); i++ {
		updateIds = append(updateIds, logs[i].ID)
	}

	_, err = l.Coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": updateIds}}, bson.M{"$set": bson.M{"exported": true}})
	if err != nil {
		return 0, errors.Wrap(err, "mark audit logs exported")
	}
	return len(logs), nil
}
