package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// casScript commits the new record when the key is absent or when the stored
// record's holder_id equals the expected holder, and otherwise returns the
// value actually present. Running it server-side is what makes the
// compare-and-swap atomic.
var casScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local rec = cjson.decode(current)
	if rec["holder_id"] ~= ARGV[2] then
		return {0, current}
	end
end
redis.call("SET", KEYS[1], ARGV[1])
return {1, ""}
`)

// RedisStore implements LeaseStore on a shared Redis instance. Records are
// stored as JSON so the Lua script can compare the holder field directly.
type RedisStore struct {
	client *redis.Client
}

// Verify RedisStore implements LeaseStore at compile time
var _ LeaseStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*LeaseRecord, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var rec LeaseRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, rec LeaseRecord, expectedHolder string) (bool, *LeaseRecord, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return false, nil, fmt.Errorf("encode %s: %w", key, err)
	}

	res, err := casScript.Run(ctx, s.client, []string{key}, string(value), expectedHolder).Slice()
	if err != nil {
		return false, nil, fmt.Errorf("cas %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, nil, fmt.Errorf("cas %s: unexpected script reply %v", key, res)
	}

	if committed, _ := res[0].(int64); committed == 1 {
		return true, nil, nil
	}

	raw, _ := res[1].(string)
	var current LeaseRecord
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		return false, nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return false, &current, nil
}
