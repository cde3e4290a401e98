package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"opd-booking/booking/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de decisões em hashes do Redis.
//
// Layout das chaves (prefixo padrão "opd:stats"):
//
//	<prefix>:total                 outcome -> n
//	<prefix>:minute:<yyyymmddhhmm> outcome -> n   (expira em ttl)
//	<prefix>:slot:<doctor>/<slot>  outcome -> n   (expira em ttl)
//	<prefix>:priority              <PRIORITY>:<outcome> -> n
//
// Só contadores: o estado dos slots nunca vai para o Redis.
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por slot.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackSlots bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackSlots(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackSlots = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:        rdb,
		prefix:     "opd:stats",
		ttl:        24 * time.Hour,
		bucket:     "minute",
		trackSlots: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackSlots && (ev.Doctor != "" || ev.Slot != "") {
		key := s.prefix + ":slot:" + slotKey(ev.Doctor, ev.Slot)
		pipe.HIncrBy(ctx, key, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	if ev.Priority.Valid() {
		pipe.HIncrBy(ctx, s.prefix+":priority", string(ev.Priority)+":"+field, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}
