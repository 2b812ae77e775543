package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix はRedisキーのデフォルトプレフィックス。
const DefaultKeyPrefix = "bookwise:ratelimit"

// slidingWindowScript はソート済みセットを使ったスライディングウィンドウの判定スクリプト。
// スコアはミリ秒単位のUnix時刻。スクリプト全体がRedis上で原子的に実行される。
//
// KEYS[1] = ウィンドウのキー
// ARGV[1] = 現在時刻(ms), ARGV[2] = ウィンドウ長(ms), ARGV[3] = 上限, ARGV[4] = エントリのメンバー名
// 戻り値 = {admitted(0|1), count, oldest(ms, 空なら0)}
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
local admitted = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  admitted = 1
end

if count > 0 then
  redis.call('PEXPIRE', key, window)
end

local oldest = 0
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #first == 2 then
  oldest = tonumber(first[2])
end

return {admitted, count, oldest}
`)

// RedisStore はRedisのソート済みセットにウィンドウを保持するStore実装。
// 全アプリケーションインスタンスで同一のウィンドウを共有する。
type RedisStore struct {
	client redis.Scripter
	prefix string
}

// NewRedisStore はRedisStoreを生成する。
// prefixが空の場合はDefaultKeyPrefixを使用する。
func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// NewRedisClient はREDIS_URL形式の接続文字列からRedisクライアントを生成する。
// 接続確認は行わないため、起動時にPingで確認すること。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Hit はスライディングウィンドウ判定スクリプトを実行する。
func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Window, error) {
	nowMs := now.UnixMilli()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	vals, err := slidingWindowScript.Run(ctx, s.client,
		[]string{s.key(key)},
		nowMs, window.Milliseconds(), limit, member,
	).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("failed to run sliding window script: %w", err)
	}
	if len(vals) != 3 {
		return Window{}, fmt.Errorf("unexpected sliding window script result: %v", vals)
	}

	w := Window{
		Admitted: vals[0] == 1,
		Count:    int(vals[1]),
	}
	if vals[2] > 0 {
		w.Oldest = time.UnixMilli(vals[2])
	}
	return w, nil
}

// key はRedisキーを組み立てる。
func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

var _ Store = (*RedisStore)(nil)
