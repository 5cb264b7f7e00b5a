package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	sessionKeyPrefix  = "chat:session:"
	defaultSessionTTL = 30 * 24 * time.Hour
)

// RedisStore keeps each session as a JSON document under chat:session:<id>.
// Saves use WATCH so a concurrent writer causes ErrVersionConflict.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("urbanhaven.internal.conversation.sessions")
	}
	return &RedisStore{client: client, ttl: ttl, tracer: tracer, now: time.Now}
}

func (s *RedisStore) Find(ctx context.Context, sessionID string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.find_session")
	defer span.End()

	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Create(_ context.Context, sessionID string, initial State) (*Session, error) {
	return NewSession(sessionID, initial, s.now().UTC()), nil
}

func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_session")
	defer span.End()

	key := sessionKey(session.ID)
	next := session.Clone()
	next.Version = session.Version + 1
	next.UpdatedAt = s.now().UTC()

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if session.Version != 0 {
				return ErrVersionConflict
			}
		case err != nil:
			return err
		default:
			var stored Session
			if err := json.Unmarshal(raw, &stored); err != nil {
				return err
			}
			if session.Version == 0 || stored.Version != session.Version {
				return ErrVersionConflict
			}
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		err = ErrVersionConflict
	}
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}

	session.Version = next.Version
	session.UpdatedAt = next.UpdatedAt
	return nil
}

// List scans every session key. Keys that expire mid-scan are skipped.
func (s *RedisStore) List(ctx context.Context) ([]*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.list_sessions")
	defer span.End()

	var out []*Session
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: failed to load session: %w", err)
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
		}
		out = append(out, &sess)
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to scan sessions: %w", err)
	}
	sortSessions(out)
	return out, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
