package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/park285/cheese-solo-chess/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultGamesKey = "solochess:games"

// RedisStore keeps a capped list of finished games as JSON, newest first.
type RedisStore struct {
	rdb   *redis.Client
	key   string
	limit int
}

func NewRedisStore(rdb *redis.Client, limit int) *RedisStore {
	if limit <= 0 {
		limit = 20
	}
	return &RedisStore{rdb: rdb, key: defaultGamesKey, limit: limit}
}

func (s *RedisStore) Record(ctx context.Context, game *domain.SoloGame) error {
	if game == nil {
		return nil
	}
	raw, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, s.key, raw)
	pipe.LTrim(ctx, s.key, 0, int64(s.limit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push game: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, n int) ([]*domain.SoloGame, error) {
	if n <= 0 || n > s.limit {
		n = s.limit
	}
	raws, err := s.rdb.LRange(ctx, s.key, 0, int64(n-1)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}
	out := make([]*domain.SoloGame, 0, len(raws))
	for _, raw := range raws {
		var g domain.SoloGame
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			continue
		}
		out = append(out, &g)
	}
	return out, nil
}

// ParseRedisURL accepts redis://[:password@]host[:port][/db].
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing redis host")
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("bad redis port %q", port)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: host + ":" + port, Password: pass, DB: db}, nil
}
