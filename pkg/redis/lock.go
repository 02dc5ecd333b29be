package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockNotAcquired 锁已被其他请求持有
var ErrLockNotAcquired = errors.New("锁已被占用")

// 仅当 value 与持有者 token 一致时才删除，避免误删他人续上的锁
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// 仅持有者可续期
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker 按键互斥锁。持有期间每隔 ttl/3 自动续期，ttl 只决定持有者异常退出后锁多久失效
type Locker interface {
	// Acquire 获取锁，成功时返回释放函数；锁被占用时返回 ErrLockNotAcquired
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// NewLocker Redis 可用时使用分布式锁，否则降级为进程内锁
func NewLocker(c *Client) Locker {
	if c == nil {
		return NewLocalLocker()
	}
	return &redisLocker{client: c}
}

type redisLocker struct {
	client *Client
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	ok, err := l.client.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	stop := keepAlive(key, ttl/3, func() (bool, error) {
		extCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := extendScript.Run(extCtx, l.client.rdb, []string{key}, token, ttl.Milliseconds()).Int()
		return n == 1, err
	}, l.client.logger)

	var once sync.Once
	release := func() {
		once.Do(func() {
			stop()
			// 释放不应受调用方 ctx 取消影响
			relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(relCtx, l.client.rdb, []string{key}, token).Err(); err != nil {
				l.client.logger.Warn("释放 Redis 锁失败", zap.String("key", key), zap.Error(err))
			}
		})
	}
	return release, nil
}

// keepAlive 每隔 interval 调用 extend 续期，直到 stop 返回或续期发现锁已不属于自己。
// stop 返回时续期协程已退出。
func keepAlive(key string, interval time.Duration, extend func() (bool, error), logger *zap.Logger) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				held, err := extend()
				if err != nil {
					// 网络抖动：下一轮再试，锁在 ttl 内仍有效
					logger.Warn("锁续期失败", zap.String("key", key), zap.Error(err))
					continue
				}
				if !held {
					logger.Error("锁已过期或被他人持有，停止续期", zap.String("key", key))
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

// LocalLocker 进程内按键锁（单实例部署或 Redis 不可用时使用）
type LocalLocker struct {
	mu   sync.Mutex
	seq  uint64
	held map[string]localLease
}

type localLease struct {
	token     uint64
	expiresAt time.Time
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localLease)}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	now := time.Now()
	if lease, ok := l.held[key]; ok && now.Before(lease.expiresAt) {
		l.mu.Unlock()
		return nil, ErrLockNotAcquired
	}
	l.seq++
	token := l.seq
	l.held[key] = localLease{token: token, expiresAt: now.Add(ttl)}
	l.mu.Unlock()

	stop := keepAlive(key, ttl/3, func() (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].token != token {
			return false, nil
		}
		l.held[key] = localLease{token: token, expiresAt: time.Now().Add(ttl)}
		return true, nil
	}, zap.NewNop())

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key].token == token {
				delete(l.held, key)
			}
		})
	}, nil
}
