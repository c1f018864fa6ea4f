package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/ferret/pkg/log"
	"github.com/cuemby/ferret/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	statusKeyPrefix = "worker_status:"

	// reconnectDelay bounds how fast either side retries after losing the
	// broker connection.
	reconnectDelay = 5 * time.Second
)

// Config holds broker connection settings and key names.
type Config struct {
	Addr            string
	TaskQueuePrefix string
	ResultsChannel  string
}

// Client wraps the Redis connection used for task queues, the results
// channel, and worker status records. One long-lived client serves all
// command traffic; subscriptions get their own connection underneath
// (subscribe semantics preclude sharing).
type Client struct {
	cfg    Config
	rdb    *redis.Client
	logger zerolog.Logger
}

// New creates a broker client. The connection is established lazily on
// first use and re-established automatically after failures.
func New(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		MinRetryBackoff: time.Second,
		MaxRetryBackoff: reconnectDelay,
	})
	return &Client{
		cfg:    cfg,
		rdb:    rdb,
		logger: log.WithComponent("broker"),
	}
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies the broker is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) taskQueue(workerID string) string {
	return c.cfg.TaskQueuePrefix + ":" + workerID
}

func statusKey(workerID string) string {
	return statusKeyPrefix + workerID
}

// PushTask appends a task to the given worker's queue and returns the new
// queue length.
func (c *Client) PushTask(ctx context.Context, workerID string, task *types.DocumentTask) (int64, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return 0, fmt.Errorf("failed to encode task %s: %w", task.DocID, err)
	}
	length, err := c.rdb.RPush(ctx, c.taskQueue(workerID), payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to push task %s to %s: %w", task.DocID, workerID, err)
	}
	return length, nil
}

// PopTask blocks on the worker's queue for up to timeout. It returns
// (nil, nil) when the queue stays empty, and an error for broker failures
// or an undecodable task payload (which has already been consumed and
// should be dropped by the caller).
func (c *Client) PopTask(ctx context.Context, workerID string, timeout time.Duration) (*types.DocumentTask, error) {
	reply, err := c.rdb.BLPop(ctx, timeout, c.taskQueue(workerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop task for %s: %w", workerID, err)
	}
	// BLPop replies [queue, value].
	var task types.DocumentTask
	if err := json.Unmarshal([]byte(reply[1]), &task); err != nil {
		return nil, fmt.Errorf("malformed task payload on %s: %w", c.taskQueue(workerID), err)
	}
	return &task, nil
}

// QueueLength returns the number of tasks waiting for the given worker.
func (c *Client) QueueLength(ctx context.Context, workerID string) (int64, error) {
	return c.rdb.LLen(ctx, c.taskQueue(workerID)).Result()
}

// PublishResult fans a partial result out on the results channel and
// returns the number of subscribers that received it.
func (c *Client) PublishResult(ctx context.Context, result *types.PartialResult) (int64, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to encode result for %s: %w", result.DocID, err)
	}
	receivers, err := c.rdb.Publish(ctx, c.cfg.ResultsChannel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish result for %s: %w", result.DocID, err)
	}
	return receivers, nil
}

// SubscribeResults consumes the results channel until ctx is cancelled,
// invoking handler once per decodable message. Decode failures are logged
// and the stream continues. The subscription uses its own connection and
// re-subscribes after reconnects; messages lost while disconnected are not
// redelivered.
func (c *Client) SubscribeResults(ctx context.Context, handler func(*types.PartialResult)) {
	sub := c.rdb.Subscribe(ctx, c.cfg.ResultsChannel)
	defer sub.Close()

	c.logger.Info().Str("channel", c.cfg.ResultsChannel).Msg("Subscribed to results channel")

	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Msg("Results subscription read failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		var result types.PartialResult
		if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
			c.logger.Error().Err(err).Msg("Dropping undecodable result message")
			continue
		}
		handler(&result)
	}
}

// ListWorkers enumerates the worker IDs that currently have a status
// record, sorted for determinism.
func (c *Client) ListWorkers(ctx context.Context) ([]string, error) {
	keys, err := c.rdb.Keys(ctx, statusKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list worker status keys: %w", err)
	}
	workers := make([]string, 0, len(keys))
	for _, key := range keys {
		workers = append(workers, strings.TrimPrefix(key, statusKeyPrefix))
	}
	sort.Strings(workers)
	return workers, nil
}

// WorkerLoad reads one worker's status hash, its TTL, and its queue length.
// Fields absent from the hash (or unparsable) come back nil; a nil
// TTLSeconds means the status key no longer exists, and -1 means the key
// has no expiry. A queue read failure leaves QueueLength nil rather than
// failing the whole read.
func (c *Client) WorkerLoad(ctx context.Context, workerID string) (*types.WorkerLoad, error) {
	load := &types.WorkerLoad{WorkerID: workerID}

	ttl, err := c.rdb.TTL(ctx, statusKey(workerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read TTL for %s: %w", workerID, err)
	}
	switch {
	case ttl == -2 || ttl == -2*time.Second:
		// Key expired between enumeration and read; TTLSeconds stays nil.
	case ttl == -1 || ttl == -1*time.Second:
		load.TTLSeconds = int64Ptr(-1)
	default:
		load.TTLSeconds = int64Ptr(int64(ttl / time.Second))
	}

	fields, err := c.rdb.HGetAll(ctx, statusKey(workerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read status for %s: %w", workerID, err)
	}
	load.CPUPercent = parseFloatField(fields, "cpu")
	load.RAMPercent = parseFloatField(fields, "ram")

	if qlen, err := c.QueueLength(ctx, workerID); err == nil {
		load.QueueLength = &qlen
	} else {
		c.logger.Warn().Err(err).Str("worker_id", workerID).Msg("Could not read queue length")
	}

	return load, nil
}

// SetStatus writes the worker's load figures and refreshes the record TTL.
func (c *Client) SetStatus(ctx context.Context, workerID string, cpu, ram float64, ttl time.Duration) error {
	key := statusKey(workerID)
	if err := c.rdb.HSet(ctx, key,
		"cpu", strconv.FormatFloat(cpu, 'f', -1, 64),
		"ram", strconv.FormatFloat(ram, 'f', -1, 64),
	).Err(); err != nil {
		return fmt.Errorf("failed to write status for %s: %w", workerID, err)
	}
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set status TTL for %s: %w", workerID, err)
	}
	return nil
}

// RefreshStatusTTL extends the status record's TTL without rewriting the
// hash, used when load figures have not changed meaningfully.
func (c *Client) RefreshStatusTTL(ctx context.Context, workerID string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, statusKey(workerID), ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh status TTL for %s: %w", workerID, err)
	}
	return nil
}

func parseFloatField(fields map[string]string, name string) *float64 {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}
