package healer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// dedupTracker is the interface Pipeline depends on for deduplication.
// Both the in-process Deduplicator and RedisDeduplicator satisfy it, so a
// single-replica controller and a horizontally scaled one share the same
// pipeline code.
type dedupTracker interface {
	IsDuplicate(fingerprint, alertType, podName string) bool
	Track(fingerprint, alertType, podName string)
	MarkDone(fingerprint string)
	ActiveCount() int
}

// RedisDeduplicator tracks in-flight remediations in Redis so that
// multiple controller replicas dedup against each other, falling back to
// an in-process Deduplicator (and logging a warning) whenever Redis is
// unreachable or its circuit breaker is open. A failure to reach Redis
// never blocks a remediation decision; at worst two replicas both fire
// for the same failure once, which the workflow-family window still
// catches on the next report.
type RedisDeduplicator struct {
	rdb      *redis.Client
	breaker  *gobreaker.CircuitBreaker
	fallback *Deduplicator
	prefix   string
	window   time.Duration
	logger   *log.Logger
}

// NewRedisDeduplicator wires rdb as the primary store, keyed under
// prefix, with window as the dedup TTL. A nil logger falls back to
// log.Default().
func NewRedisDeduplicator(rdb *redis.Client, prefix string, window time.Duration, logger *log.Logger) *RedisDeduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisDeduplicator{
		rdb:      rdb,
		fallback: NewDeduplicator().WithWindow(window),
		prefix:   prefix,
		window:   window,
		logger:   logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "healer-redis-dedup",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (d *RedisDeduplicator) fingerprintKey(fingerprint string) string {
	return fmt.Sprintf("%s:fp:%s", d.prefix, fingerprint)
}

func (d *RedisDeduplicator) familyKey(alertType, family string) string {
	return fmt.Sprintf("%s:family:%s:%s", d.prefix, alertType, family)
}

func (d *RedisDeduplicator) activeCountKey() string {
	return fmt.Sprintf("%s:active", d.prefix)
}

// IsDuplicate checks Redis for either a live fingerprint key or a live
// (alert-type, workflow-family) key, falling back to the in-process
// tracker if Redis cannot answer.
func (d *RedisDeduplicator) IsDuplicate(fingerprint, alertType, podName string) bool {
	family := ExtractWorkflowFamily(podName)
	result, err := d.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		n, err := d.rdb.Exists(ctx, d.fingerprintKey(fingerprint), d.familyKey(alertType, family)).Result()
		if err != nil {
			return false, err
		}
		return n > 0, nil
	})
	if err != nil {
		d.logger.Printf("healer: redis dedup check unavailable (%v), using in-process fallback", err)
		return d.fallback.IsDuplicate(fingerprint, alertType, podName)
	}
	return result.(bool)
}

// Track marks fingerprint and its workflow family as live for the dedup
// window and increments the in-flight counter.
func (d *RedisDeduplicator) Track(fingerprint, alertType, podName string) {
	family := ExtractWorkflowFamily(podName)
	_, err := d.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		pipe := d.rdb.TxPipeline()
		pipe.Set(ctx, d.fingerprintKey(fingerprint), podName, d.window)
		pipe.Set(ctx, d.familyKey(alertType, family), podName, d.window)
		pipe.SAdd(ctx, d.activeCountKey(), fingerprint)
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	if err != nil {
		d.logger.Printf("healer: redis dedup track unavailable (%v), using in-process fallback", err)
	}
	// Always track in-process too: it is the source of truth whenever the
	// breaker is open, and it costs nothing to keep warm otherwise.
	d.fallback.Track(fingerprint, alertType, podName)
}

// MarkDone removes fingerprint from the in-flight set without clearing
// its dedup-window keys.
func (d *RedisDeduplicator) MarkDone(fingerprint string) {
	_, err := d.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return nil, d.rdb.SRem(ctx, d.activeCountKey(), fingerprint).Err()
	})
	if err != nil {
		d.logger.Printf("healer: redis dedup mark-done unavailable (%v)", err)
	}
	d.fallback.MarkDone(fingerprint)
}

// ActiveCount returns the number of in-flight remediations, preferring
// Redis's shared view across replicas and falling back to the local
// count when Redis is unavailable.
func (d *RedisDeduplicator) ActiveCount() int {
	result, err := d.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return d.rdb.SCard(ctx, d.activeCountKey()).Result()
	})
	if err != nil {
		d.logger.Printf("healer: redis dedup active-count unavailable (%v), using in-process fallback", err)
		return d.fallback.ActiveCount()
	}
	return int(result.(int64))
}
