package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/config"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	rediscommon "github.com/MahmutEsadErman/HealthCareWristlet/internal/redis"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Stream entry fields
const (
	FieldPatientID = "patient_id"
	FieldKind      = "kind"
	FieldData      = "data"
)

// StreamConsumer Redis Streams consumer feeding samples into the engine.
//
// Entries are acked once handled. Entries the engine rejects (validation or
// unknown patient) are acked too so they are not redelivered. Store failures
// leave the entry pending; the consumer rereads its own pending entries at
// startup and after a batch with failures before reading new ones.
type StreamConsumer struct {
	config         config.IngestConfig
	redisClient    *redis.Client
	ingester       service.Ingester
	logger         *zap.Logger
	now            func() time.Time
	recoverPending bool
}

func NewStreamConsumer(cfg config.IngestConfig, redisClient *redis.Client, ingester service.Ingester, logger *zap.Logger) *StreamConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamConsumer{
		config:         cfg,
		redisClient:    redisClient,
		ingester:       ingester,
		logger:         logger,
		now:            time.Now,
		recoverPending: true,
	}
}

// Start blocks until ctx is done.
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.config.Stream, c.config.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", c.config.Stream, err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("stream", c.config.Stream),
		zap.String("consumer_group", c.config.ConsumerGroup),
		zap.String("consumer_name", c.config.ConsumerName),
	)

	ctx = service.WithIngestSource(ctx, "stream")
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := c.consumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume stream",
				zap.String("stream", c.config.Stream),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

// consumeOnce reads one batch; returns the number of entries acked.
// While recovering, the batch comes from this consumer's pending entries.
// A batch with store failures returns an error after acking the rest.
func (c *StreamConsumer) consumeOnce(ctx context.Context) (int, error) {
	start, block := rediscommon.NewEntries, c.config.Block
	if c.recoverPending {
		start, block = rediscommon.PendingEntries, -1
	}

	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.config.Stream,
		c.config.ConsumerGroup,
		c.config.ConsumerName,
		start,
		c.config.BatchSize,
		block,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream %s: %w", c.config.Stream, err)
	}
	if c.recoverPending && len(messages) == 0 {
		c.recoverPending = false
		return 0, nil
	}

	ack := make([]string, 0, len(messages))
	failed := 0
	for _, msg := range messages {
		err := c.processMessage(ctx, msg)
		switch {
		case err == nil:
			ack = append(ack, msg.ID)
		case models.IsValidation(err) || models.IsNotFound(err):
			c.logger.Warn("Dropping rejected stream entry",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			ack = append(ack, msg.ID)
		default:
			c.logger.Error("Failed to process stream entry",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			failed++
		}
	}

	if err := rediscommon.Ack(ctx, c.redisClient, c.config.Stream, c.config.ConsumerGroup, ack...); err != nil {
		c.recoverPending = true
		return 0, fmt.Errorf("failed to ack stream entries: %w", err)
	}
	if failed > 0 {
		c.recoverPending = true
		return len(ack), fmt.Errorf("%d stream entries left pending", failed)
	}
	return len(ack), nil
}

func (c *StreamConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	patientID := msg.String(FieldPatientID)
	kind := msg.String(FieldKind)
	if patientID == "" || kind == "" {
		return models.NewValidationError("stream entry requires patient_id and kind")
	}

	sample, err := models.DecodeSample(models.SampleKind(kind), patientID, []byte(msg.String(FieldData)), c.now())
	if err != nil {
		return err
	}

	_, err = c.ingester.Ingest(ctx, sample)
	return err
}
