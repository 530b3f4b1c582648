package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamMessage one Redis Streams entry
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// String returns the field as a string; missing fields are "".
func (m StreamMessage) String(field string) string {
	switch v := m.Values[field].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// PublishToStream XADDs values to stream, stringifying scalar values.
func PublishToStream(ctx context.Context, client *redis.Client, stream string, values map[string]interface{}) (string, error) {
	streamValues := make(map[string]interface{}, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case string:
			streamValues[k] = val
		case []byte:
			streamValues[k] = string(val)
		case int:
			streamValues[k] = strconv.Itoa(val)
		case int64:
			streamValues[k] = strconv.FormatInt(val, 10)
		case float64:
			streamValues[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			streamValues[k] = strconv.FormatBool(val)
		default:
			return "", fmt.Errorf("unsupported stream value for %s: %T", k, v)
		}
	}

	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: streamValues,
	}).Result()
}

// Start IDs for ReadFromStream
const (
	NewEntries     = ">" // entries never delivered to the group
	PendingEntries = "0" // this consumer's delivered but unacked entries
)

// ReadFromStream XREADGROUP from start (NewEntries or PendingEntries). A timeout
// with nothing to read returns no messages; a negative block does not block.
func ReadFromStream(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer, start string, count int64, block time.Duration) ([]StreamMessage, error) {
	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumer,
		Streams:  []string{stream, start},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []StreamMessage{}, nil
		}
		return nil, err
	}

	var messages []StreamMessage
	for _, s := range streams {
		for _, msg := range s.Messages {
			messages = append(messages, StreamMessage{
				Stream: s.Stream,
				ID:     msg.ID,
				Values: msg.Values,
			})
		}
	}
	return messages, nil
}

// Ack acknowledges processed entries
func Ack(ctx context.Context, client *redis.Client, stream, consumerGroup string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return client.XAck(ctx, stream, consumerGroup, ids...).Err()
}

// CreateConsumerGroup creates the group (and the stream if missing). An existing group is not an error.
func CreateConsumerGroup(ctx context.Context, client *redis.Client, stream, groupName string) error {
	err := client.XGroupCreateMkStream(ctx, stream, groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}
