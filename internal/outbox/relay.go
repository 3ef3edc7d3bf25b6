package outbox

import (
	"context"
	"time"

	"talentvault/internal/constants"
	"talentvault/internal/logger"
	"talentvault/internal/storage"
	"talentvault/internal/storage/models"
	"talentvault/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	maxRetryCount          = 5
)

// MessageRelay polls the outbox table and publishes pending CRM events to
// the broker. Rows are claimed with FOR UPDATE SKIP LOCKED, so multiple
// relay instances can run side by side without double-publishing.
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	log             zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	done            chan struct{}
	tracer          trace.Tracer
}

// NewMessageRelay builds a relay over the given database and publisher.
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ) *MessageRelay {
	return &MessageRelay{
		db:              db,
		publisher:       publisher,
		log:             logger.Logger.With().Str("component", "outbox_relay").Logger(),
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("talentvault/outbox"),
	}
}

// Start begins polling in a background goroutine.
func (r *MessageRelay) Start() {
	r.log.Info().Dur("interval", r.pollingInterval).Msg("outbox relay starting")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				r.log.Info().Msg("outbox relay stopped")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					r.log.Error().Err(err).Msg("outbox batch failed")
				}
			}
		}
	}()
}

// Stop signals the polling goroutine to exit.
func (r *MessageRelay) Stop() {
	close(r.done)
}

// processPendingMessages claims and publishes one batch of pending rows.
// The claim and the status updates share a transaction: if the update
// fails the whole batch rolls back and is re-picked on the next tick.
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	// Spans only for non-empty batches; the query itself stays untraced so
	// idle polling does not flood the trace backend.
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", constants.StatusOutboxPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true,
		)

		if err != nil {
			tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeRabbitMQ,
				attribute.Int64("messaging.message_id", int64(msg.ID)))
			r.log.Warn().Err(err).
				Uint64("message_id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retries", msg.RetryCount+1).
				Msg("outbox publish failed")
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = constants.StatusOutboxFailed
			}
		} else {
			msg.Status = constants.StatusOutboxProcessed
			now := time.Now().UTC()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		if err := tx.Save(&msg).Error; err != nil {
			// Rolls back the batch; these rows stay PENDING and are
			// re-picked on the next tick.
			return err
		}
	}

	span.SetAttributes(attribute.Int("messaging.batch.published", len(messages)))
	return tx.Commit().Error
}
