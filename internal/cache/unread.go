// Package cache holds the redis-backed unread-notification counter.
// The database stays the source of truth; the counter only spares the
// hot unread-count endpoint a COUNT query.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 3 * time.Second

// UnreadCounter caches per-user unread notification counts. All methods
// are safe on a nil receiver and degrade to a no-op cache miss, so
// callers never need to special-case a disabled cache.
type UnreadCounter struct {
	client *redis.Client
	log    *log.Logger
}

func NewUnreadCounter(addr string, logger *log.Logger) *UnreadCounter {
	return &UnreadCounter{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		log:    logger,
	}
}

func unreadKey(userId int) string {
	return fmt.Sprintf("unread:%d", userId)
}

// Get returns the cached unread count for a user. The second return
// value reports whether the cache had an entry.
func (c *UnreadCounter) Get(userId int) (int, bool) {
	if c == nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	count, err := c.client.Get(ctx, unreadKey(userId)).Int()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		c.log.Println("unread cache get:", err)
		return 0, false
	}

	return count, true
}

// Set stores the authoritative unread count for a user.
func (c *UnreadCounter) Set(userId, count int) {
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, unreadKey(userId), count, 0).Err(); err != nil {
		c.log.Println("unread cache set:", err)
	}
}

// Incr bumps the cached count after a notification insert. A missing
// key is left missing; the next Get falls through to the database.
func (c *UnreadCounter) Incr(userId int) {
	c.adjust(userId, 1)
}

// Decr lowers the cached count after a single notification is read.
func (c *UnreadCounter) Decr(userId int) {
	c.adjust(userId, -1)
}

func (c *UnreadCounter) adjust(userId, delta int) {
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	key := unreadKey(userId)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.log.Println("unread cache exists:", err)
		return
	}
	if exists == 0 {
		return
	}

	if err := c.client.IncrBy(ctx, key, int64(delta)).Err(); err != nil {
		c.log.Println("unread cache incrby:", err)
	}
}

// Invalidate drops the cached count for a user. Used on bulk updates
// (read-all, delete) where recomputing is cheaper than adjusting.
func (c *UnreadCounter) Invalidate(userId int) {
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, unreadKey(userId)).Err(); err != nil {
		c.log.Println("unread cache del:", err)
	}
}

func (c *UnreadCounter) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
