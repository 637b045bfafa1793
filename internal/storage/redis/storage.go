package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// scanBatch is the COUNT hint used when listing games
const scanBatch = 100

// Storage is a Redis-backed implementation of the game store
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable(err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interfaces
var (
	_ storage.GameStore  = (*Storage)(nil)
	_ storage.GameLister = (*Storage)(nil)
)

func (s *Storage) SaveGame(ctx context.Context, key string, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, gameKey(key), data, s.cfg.GameTTL).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, key string) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, unavailable(err)
	}

	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("decode game %q: %w", key, err)
	}
	return &game, nil
}

func (s *Storage) ListGames(ctx context.Context, prefix string) ([]*model.Game, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, gameKeyPattern(prefix), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable(err)
	}

	if len(keys) == 0 {
		return []*model.Game{}, nil
	}
	sort.Strings(keys)

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	games := make([]*model.Game, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Game may have expired between SCAN and MGET
		}
		var game model.Game
		if err := json.Unmarshal([]byte(str), &game); err != nil {
			continue // Skip invalid data
		}
		games = append(games, &game)
	}

	return games, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: redis: %w", model.ErrStorageUnavailable, err)
}
