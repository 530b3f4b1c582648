package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	mqttc "github.com/MahmutEsadErman/HealthCareWristlet/internal/mqtt"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"go.uber.org/zap"
)

// Subscriber the part of the MQTT client the consumer needs
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttc.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTConsumer feeds wristlet MQTT messages ({prefix}/{patient_id}/{kind}) into the engine.
type MQTTConsumer struct {
	subscriber  Subscriber
	ingester    service.Ingester
	topicPrefix string
	qos         byte
	logger      *zap.Logger
	now         func() time.Time
	ctx         context.Context
}

func NewMQTTConsumer(subscriber Subscriber, ingester service.Ingester, topicPrefix string, qos byte, logger *zap.Logger) *MQTTConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTConsumer{
		subscriber:  subscriber,
		ingester:    ingester,
		topicPrefix: topicPrefix,
		qos:         qos,
		logger:      logger,
		now:         time.Now,
		ctx:         context.Background(),
	}
}

// Start subscribes and returns; messages are handled on the client's goroutines until Stop.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = service.WithIngestSource(ctx, "mqtt")
	filter := mqttc.SampleFilter(c.topicPrefix)
	if err := c.subscriber.Subscribe(filter, c.qos, c.handleMessage); err != nil {
		return err
	}
	c.logger.Info("MQTT consumer started", zap.String("filter", filter))
	return nil
}

func (c *MQTTConsumer) Stop() error {
	return c.subscriber.Unsubscribe(mqttc.SampleFilter(c.topicPrefix))
}

func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	patientID, kind, ok := mqttc.ParseSampleTopic(c.topicPrefix, topic)
	if !ok {
		return fmt.Errorf("unexpected topic %q", topic)
	}

	sample, err := models.DecodeSample(models.SampleKind(kind), patientID, payload, c.now())
	if err != nil {
		return fmt.Errorf("decode %s sample for %s: %w", kind, patientID, err)
	}

	res, err := c.ingester.Ingest(c.ctx, sample)
	if err != nil {
		return fmt.Errorf("ingest %s sample for %s: %w", kind, patientID, err)
	}

	if res.Raised() {
		c.logger.Debug("MQTT sample raised alert",
			zap.String("patient_id", patientID),
			zap.String("alert_id", res.Alert.AlertID),
		)
	}
	return nil
}
