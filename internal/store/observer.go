package store

import (
	"context"
	"log/slog"
	"time"

	"apm-exporter/internal/model"
	"apm-exporter/internal/pipeline"
)

// BatchLog persists the ordered log lines of one batch
type BatchLog struct {
	pipeline.NopObserver

	ctx     context.Context
	store   *Store
	batchID string
	logger  *slog.Logger
}

// NewBatchLog returns an observer writing batch log lines; writes outlive ctx cancellation
func NewBatchLog(ctx context.Context, s *Store, batchID string, logger *slog.Logger) *BatchLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchLog{
		ctx:     context.WithoutCancel(ctx),
		store:   s,
		batchID: batchID,
		logger:  logger,
	}
}

func (b *BatchLog) Log(level model.LogLevel, message string) {
	entry := model.LogEntry{Level: level, Message: message, Timestamp: time.Now().UTC()}
	if err := b.store.SaveBatchLog(b.ctx, b.batchID, entry); err != nil {
		b.logger.Error("failed to save batch log", "batch_id", b.batchID, "error", err)
	}
}

// RecordResult stores the task errors and final counts of a finished batch
func (s *Store) RecordResult(ctx context.Context, batchID string, result *model.BatchResult) error {
	for _, taskErr := range result.Errors {
		if err := s.SaveBatchError(ctx, batchID, taskErr); err != nil {
			return err
		}
	}
	return s.CompleteBatch(ctx, batchID, result)
}
