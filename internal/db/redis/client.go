package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/suntan/internal/db"
)

var _ db.Engine = (*Store)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store is a migration target on Redis 8+ (or Redis Stack) with the search
// module loaded. Each document is a hash keyed "<index>:<id>" and the FT
// index covers that prefix.
type Store struct {
	client rueidis.Client
	def    *db.IndexDefinition
	prefix string
}

// NewStore connects to Redis. The FT index is not touched; call EnsureIndex
// before writing.
func NewStore(cfg Config, def *db.IndexDefinition) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if err := def.Validate(); err != nil {
		return nil, &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		// FT.SEARCH replies are parsed as RESP2 arrays.
		AlwaysRESP2: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis %v: %w", cfg.Addrs, err)
	}
	return newStore(client, def), nil
}

func newStore(c rueidis.Client, def *db.IndexDefinition) *Store {
	return &Store{client: c, def: def, prefix: def.Name + ":"}
}

// Definition returns the index definition the store was opened with.
func (s *Store) Definition() *db.IndexDefinition { return s.def }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// WaitForReady pings with growing pauses, from 50ms up to 1s, until Redis
// answers or timeout expires. Freshly started containers refuse
// connections for a while.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pause := 50 * time.Millisecond
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready after %s: %w", timeout, err)
		case <-time.After(pause):
		}
		pause = min(2*pause, time.Second)
	}
}

func (s *Store) key(id string) string { return s.prefix + id }

// ft runs a search module command, which the typed builder does not cover.
func (s *Store) ft(ctx context.Context, name string, args ...string) rueidis.RedisResult {
	return s.client.Do(ctx, s.client.B().Arbitrary(name).Args(args...).Build())
}

// serverSays reports whether err is a Redis error reply mentioning any of
// phrases. Module versions differ in capitalisation.
func serverSays(err error, phrases ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, p := range phrases {
		if strings.Contains(msg, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
