package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginKeyPrefix = "magiclink:"

// RedisLoginStore keeps login tokens in redis with a TTL.  Take uses
// GETDEL so two clicks on the same link cannot both sign in.
type RedisLoginStore struct {
	rdb *redis.Client
}

func NewRedisLoginStore(rdb *redis.Client) *RedisLoginStore {
	return &RedisLoginStore{rdb: rdb}
}

func (s *RedisLoginStore) Save(ctx context.Context, token, email string, ttl time.Duration) error {
	return s.rdb.Set(ctx, loginKeyPrefix+token, email, ttl).Err()
}

func (s *RedisLoginStore) Take(ctx context.Context, token string) (string, error) {
	email, err := s.rdb.GetDel(ctx, loginKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrLoginTokenInvalid
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

// MemoryLoginStore is the single-process fallback used when redis is not
// configured.
type MemoryLoginStore struct {
	mu      sync.Mutex
	pending map[string]memoryLogin
	now     func() time.Time
}

type memoryLogin struct {
	email string
	exp   time.Time
}

func NewMemoryLoginStore() *MemoryLoginStore {
	return &MemoryLoginStore{pending: map[string]memoryLogin{}, now: time.Now}
}

func (s *MemoryLoginStore) Save(_ context.Context, token, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.pending {
		if !now.Before(v.exp) {
			delete(s.pending, k)
		}
	}
	s.pending[token] = memoryLogin{email: email, exp: now.Add(ttl)}
	return nil
}

func (s *MemoryLoginStore) Take(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.pending[token]
	if !ok {
		return "", ErrLoginTokenInvalid
	}
	delete(s.pending, token)
	if !s.now().Before(v.exp) {
		return "", ErrLoginTokenInvalid
	}
	return v.email, nil
}
