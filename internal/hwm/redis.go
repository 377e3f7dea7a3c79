package hwm

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonny/ibdash/pkg/redis"
)

// ratchetScript sets KEYS[1] to ARGV[1] only when it is higher and returns
// the stored value verbatim
var ratchetScript = goredis.NewScript(`
local current = redis.call('GET', KEYS[1])
local candidate = tonumber(ARGV[1])
if candidate > tonumber(current or '0') then
	redis.call('SET', KEYS[1], ARGV[1])
	return ARGV[1]
end
return current or '0'
`)

// RedisStore keeps the mark under hwm:{account}
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store for accountID. client must be enabled.
func NewRedisStore(client *redis.Client, accountID string) *RedisStore {
	return &RedisStore{client: client, key: "hwm:" + accountID}
}

// Read implements Store
func (s *RedisStore) Read(ctx context.Context) (float64, error) {
	raw, err := s.client.Redis().Get(ctx, s.key).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read high-water mark: %w", err)
	}
	return parseMark(raw)
}

// WriteIfHigher implements Store
func (s *RedisStore) WriteIfHigher(ctx context.Context, v float64) (float64, error) {
	raw, err := ratchetScript.Run(ctx, s.client.Redis(), []string{s.key},
		strconv.FormatFloat(v, 'f', -1, 64)).Text()
	if err != nil {
		return 0, fmt.Errorf("failed to write high-water mark: %w", err)
	}
	return parseMark(raw)
}

func parseMark(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid high-water mark %q: %w", raw, err)
	}
	return v, nil
}
