package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
)

const lockKeyPrefix = "yejingram:room-lock:"

// unlockScript deletes the key only while it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key only while it still holds our token
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RoomLock guards rooms across server instances. The holder renews the key
// every third of the TTL, so the TTL only bounds how long a crashed holder
// can keep a room busy.
type RoomLock struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRoomLock(c *RedisClient, ttl time.Duration, log *logger.Logger) *RoomLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logger.Discard()
	}
	return &RoomLock{client: c.client, ttl: ttl, log: log}
}

func lockKey(roomID string) string {
	return lockKeyPrefix + roomID
}

// Acquire takes the room with SET NX PX. The returned release func may be
// called more than once.
func (l *RoomLock) Acquire(ctx context.Context, roomID string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(roomID), token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewRoomBusyError(roomID)
	}

	key := lockKey(roomID)
	stop := make(chan struct{})
	go keepAlive(stop, l.ttl/3, func() (bool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := renewScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		return n == 1, err
	}, l.log.WithRoom(roomID))

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.WithRoom(roomID).LogError(err, "release room lock failed")
			}
		})
	}, nil
}

// keepAlive calls renew every interval until stop closes or the lock is lost.
// Transient errors are logged and retried on the next tick.
func keepAlive(stop <-chan struct{}, interval time.Duration, renew func() (bool, error), log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := renew()
			if err != nil {
				log.LogError(err, "renew room lock failed")
				continue
			}
			if !held {
				log.Warn("room lock lost before release")
				return
			}
		}
	}
}
