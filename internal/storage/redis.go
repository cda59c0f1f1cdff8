package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/openshop/appointment-intake/internal/model"
)

// RedisStore keeps each appointment as a JSON document under
// <table>:appt:<id> and maintains a set of ids per slot under
// <table>:slot:<locationTimeKey> as the secondary index. The record write and
// the index update are two commands, consistent with the documented
// check-then-act semantics of Store.
type RedisStore struct {
	rdb   *redis.Client
	table string
}

func NewRedisStore(rdb *redis.Client, table string) *RedisStore {
	return &RedisStore{rdb: rdb, table: table}
}

func (s *RedisStore) recordKey(id string) string  { return s.table + ":appt:" + id }
func (s *RedisStore) indexKey(slot string) string { return s.table + ":slot:" + slot }

func (s *RedisStore) QueryByLocationTimeKey(ctx context.Context, key string) ([]model.Appointment, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey(key)).Result()
	if err != nil {
		return nil, queryError(s.table, key, "redis_error", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	recordKeys := make([]string, 0, len(ids))
	for _, id := range ids {
		recordKeys = append(recordKeys, s.recordKey(id))
	}
	values, err := s.rdb.MGet(ctx, recordKeys...).Result()
	if err != nil {
		return nil, queryError(s.table, key, "redis_error", err)
	}

	var appts []model.Appointment
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a record; a half-finished put was cleaned
			// up or expired. Skip it.
			continue
		}
		var appt model.Appointment
		if err := json.Unmarshal([]byte(raw), &appt); err != nil {
			return nil, queryError(s.table, key, "corrupt_record", err)
		}
		appts = append(appts, appt)
	}
	return appts, nil
}

func (s *RedisStore) PutIfIDAbsent(ctx context.Context, appt model.Appointment) error {
	raw, err := json.Marshal(appt)
	if err != nil {
		return putError(s.table, appt.ID, "encode_failed", err)
	}

	set, err := s.rdb.SetNX(ctx, s.recordKey(appt.ID), raw, 0).Result()
	if err != nil {
		return putError(s.table, appt.ID, "redis_error", err)
	}
	if !set {
		return putError(s.table, appt.ID, "precondition_failed", ErrIDExists)
	}
	if err := s.rdb.SAdd(ctx, s.indexKey(appt.LocationTimeKey), appt.ID).Err(); err != nil {
		return putError(s.table, appt.ID, "redis_error", err)
	}
	return nil
}

func (s *RedisStore) Ready(ctx context.Context) error {
	if s == nil || s.rdb == nil {
		return errors.New("redis store not configured")
	}
	return s.rdb.Ping(ctx).Err()
}
