package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout.
const (
	recordKeyPrefix     = "conv:"
	recordByDateKey     = "conv:by_date"
	recordBySessionKey  = "conv:session:" // + sessionID
	recordByFeedbackKey = "conv:feedback:" // + pos|neg
	escalationKeyPrefix = "esc:"
	escalationByDateKey = "esc:by_date"
)

// Default retention when the caller passes a non-positive TTL.
const (
	defaultRecordTTL     = 90 * 24 * time.Hour
	defaultEscalationTTL = 30 * 24 * time.Hour
)

// RedisStore implements Store on Redis.
//
// Records live under per-ID keys with a TTL; secondary index sets point at
// record IDs. Members of index sets cannot carry their own TTL, so readers
// treat a missing record key as expired and skip it.
type RedisStore struct {
	client        *redis.Client
	recordTTL     time.Duration
	escalationTTL time.Duration
}

// NewRedisStore creates a Redis-backed Store.
func NewRedisStore(client *redis.Client, recordTTL, escalationTTL time.Duration) *RedisStore {
	if recordTTL <= 0 {
		recordTTL = defaultRecordTTL
	}
	if escalationTTL <= 0 {
		escalationTTL = defaultEscalationTTL
	}
	return &RedisStore{
		client:        client,
		recordTTL:     recordTTL,
		escalationTTL: escalationTTL,
	}
}

// SaveRecord upserts a conversation record with the configured TTL and
// updates the secondary indexes.
func (s *RedisStore) SaveRecord(ctx context.Context, rec Record) error {
	now := time.Now()
	rec.ExpiresAt = now.Add(s.recordTTL)
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	key := recordKeyPrefix + rec.ConversationID
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, val, s.recordTTL)
	pipe.ZAdd(ctx, recordByDateKey, redis.Z{
		Score:  float64(rec.CreatedAt.Unix()),
		Member: rec.ConversationID,
	})
	// Index members cannot carry a TTL of their own. The sets expire
	// wholesale after the retention window; the date zset is trimmed of
	// scores older than the window on every write.
	pipe.ZRemRangeByScore(ctx, recordByDateKey, "-inf",
		fmt.Sprintf("%d", now.Add(-s.recordTTL).Unix()))
	if rec.SessionID != "" {
		pipe.SAdd(ctx, recordBySessionKey+rec.SessionID, rec.ConversationID)
		pipe.Expire(ctx, recordBySessionKey+rec.SessionID, s.recordTTL)
	}
	if rec.Feedback != "" {
		pipe.SAdd(ctx, recordByFeedbackKey+rec.Feedback, rec.ConversationID)
		pipe.Expire(ctx, recordByFeedbackKey+rec.Feedback, s.recordTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// GetRecord returns a record by conversation ID.
func (s *RedisStore) GetRecord(ctx context.Context, conversationID string) (Record, error) {
	val, err := s.client.Get(ctx, recordKeyPrefix+conversationID).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// ListRecords returns records matching the filter, newest first.
func (s *RedisStore) ListRecords(ctx context.Context, f Filter) ([]Record, error) {
	ids, err := s.candidateIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKeyPrefix + id
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	records := make([]Record, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // expired record still referenced by an index
		}
		var rec Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			continue
		}
		if matches(rec, f) {
			records = append(records, rec)
		}
	}

	sortRecordsNewestFirst(records)
	return records, nil
}

// candidateIDs picks the narrowest index for the filter.
func (s *RedisStore) candidateIDs(ctx context.Context, f Filter) ([]string, error) {
	switch {
	case f.SessionID != "":
		ids, err := s.client.SMembers(ctx, recordBySessionKey+f.SessionID).Result()
		if err != nil {
			return nil, fmt.Errorf("session index: %w", err)
		}
		return ids, nil
	case f.Feedback != "":
		ids, err := s.client.SMembers(ctx, recordByFeedbackKey+f.Feedback).Result()
		if err != nil {
			return nil, fmt.Errorf("feedback index: %w", err)
		}
		return ids, nil
	case !f.Date.IsZero():
		day := f.Date.UTC().Truncate(24 * time.Hour)
		ids, err := s.client.ZRangeByScore(ctx, recordByDateKey, &redis.ZRangeBy{
			Min: fmt.Sprintf("%d", day.Unix()),
			Max: fmt.Sprintf("(%d", day.Add(24*time.Hour).Unix()),
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("date index: %w", err)
		}
		return ids, nil
	default:
		ids, err := s.client.ZRevRange(ctx, recordByDateKey, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("date index: %w", err)
		}
		return ids, nil
	}
}

// SaveEscalation upserts an escalation with the configured TTL.
func (s *RedisStore) SaveEscalation(ctx context.Context, esc Escalation) error {
	val, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, escalationKeyPrefix+esc.ID, val, s.escalationTTL)
	pipe.ZAdd(ctx, escalationByDateKey, redis.Z{
		Score:  float64(esc.CreatedAt.Unix()),
		Member: esc.ID,
	})
	pipe.ZRemRangeByScore(ctx, escalationByDateKey, "-inf",
		fmt.Sprintf("%d", time.Now().Add(-s.escalationTTL).Unix()))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save escalation: %w", err)
	}
	return nil
}

// GetEscalation returns an escalation by ID.
func (s *RedisStore) GetEscalation(ctx context.Context, id string) (Escalation, error) {
	val, err := s.client.Get(ctx, escalationKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return Escalation{}, ErrNotFound
	}
	if err != nil {
		return Escalation{}, fmt.Errorf("get escalation: %w", err)
	}

	var esc Escalation
	if err := json.Unmarshal([]byte(val), &esc); err != nil {
		return Escalation{}, fmt.Errorf("unmarshal escalation: %w", err)
	}
	return esc, nil
}

// ListEscalations returns all live escalations, newest first.
func (s *RedisStore) ListEscalations(ctx context.Context) ([]Escalation, error) {
	ids, err := s.client.ZRevRange(ctx, escalationByDateKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("escalation index: %w", err)
	}
	if len(ids) == 0 {
		return []Escalation{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = escalationKeyPrefix + id
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch escalations: %w", err)
	}

	escalations := make([]Escalation, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var esc Escalation
		if err := json.Unmarshal([]byte(str), &esc); err != nil {
			continue
		}
		escalations = append(escalations, esc)
	}
	return escalations, nil
}

// DeleteEscalation removes an escalation. Returns ErrNotFound if no record
// exists under the given ID.
func (s *RedisStore) DeleteEscalation(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, escalationKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete escalation: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	if err := s.client.ZRem(ctx, escalationByDateKey, id).Err(); err != nil {
		return fmt.Errorf("remove escalation from index: %w", err)
	}
	return nil
}

// matches applies filter conditions not already guaranteed by the chosen
// index.
func matches(rec Record, f Filter) bool {
	if f.SessionID != "" && rec.SessionID != f.SessionID {
		return false
	}
	if f.Feedback != "" && rec.Feedback != f.Feedback {
		return false
	}
	if !f.Date.IsZero() && !sameUTCDay(rec.CreatedAt, f.Date) {
		return false
	}
	return true
}

// sortRecordsNewestFirst orders records by CreatedAt descending.
func sortRecordsNewestFirst(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
