package utils

import (
	"go.uber.org/zap"

	"plp-bookstore/internal/models"
)

// ExportData ships audit entries to the structured log.
func ExportData(logger *zap.Logger, logs []models.AuditLog) error {
	for _, log := range logs {
		logger.Info("audit",
			zap.String("id", log.ID.Hex()),
			zap.Time("timestamp", log.Timestamp),
			zap.String("entity", log.Entity),
			zap.String("action", log.Action),
			zap.String("performedBy", log.PerformedBy),
			zap.String("runID", log.RunID),
			zap.Any("data", log.Data),
		)
	}
	return nil
}
