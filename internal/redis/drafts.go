package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/comanda-pos/api/internal/service"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const draftKeyPrefix = "draft:"

// kv is the subset of the go-redis client used by DraftStore.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// Initialize connects to redisURL and pings the server.
func Initialize(ctx context.Context, redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Drafts returns a DraftStore backed by this client.
func (c *Client) Drafts(ttl time.Duration) *DraftStore {
	return NewDraftStore(c.rdb, ttl)
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// DraftStore keeps order drafts as JSON values that expire after ttl.
// Every Put refreshes the expiry.
type DraftStore struct {
	rdb kv
	ttl time.Duration
}

// NewDraftStore creates a DraftStore over rdb.
func NewDraftStore(rdb kv, ttl time.Duration) *DraftStore {
	return &DraftStore{rdb: rdb, ttl: ttl}
}

type draftData struct {
	TableNumber int                 `json:"table_number"`
	Lines       []service.OrderLine `json:"lines"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func draftKey(id uuid.UUID) string {
	return draftKeyPrefix + id.String()
}

// GetDraft implements service.DraftStore.
func (s *DraftStore) GetDraft(ctx context.Context, id uuid.UUID) (service.DraftState, error) {
	val, err := s.rdb.Get(ctx, draftKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return service.DraftState{}, fmt.Errorf("draft %s: %w", id, service.ErrNotFound)
		}
		return service.DraftState{}, fmt.Errorf("failed to get draft: %w", err)
	}

	var data draftData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return service.DraftState{}, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return service.DraftState{TableNumber: data.TableNumber, Lines: data.Lines}, nil
}

// PutDraft implements service.DraftStore.
func (s *DraftStore) PutDraft(ctx context.Context, id uuid.UUID, st service.DraftState) error {
	jsonData, err := json.Marshal(draftData{
		TableNumber: st.TableNumber,
		Lines:       st.Lines,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.rdb.Set(ctx, draftKey(id), jsonData, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set draft: %w", err)
	}
	return nil
}

// DeleteDraft implements service.DraftStore.
func (s *DraftStore) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
