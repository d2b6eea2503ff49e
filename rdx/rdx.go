package rdx

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

func init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func RdxSet(key, value string) error {
	return Conn.Set(context.Background(), key, value, 0).Err()
}

func RdxGet(key string) (string, error) {
	return Conn.Get(context.Background(), key).Result()
}

func RdxDel(key string) error {
	return Conn.Del(context.Background(), key).Err()
}

func SetWithExpiry(key, value string, ttl time.Duration) error {
	return Conn.Set(context.Background(), key, value, ttl).Err()
}

// ---------- Timeline view cache ----------

const timelineTTL = 15 * time.Second

func timelineKey(setSlug, reservableType string, start int64, zoom int) string {
	return fmt.Sprintf("timeline:%s:%s:%d:%d", setSlug, reservableType, start, zoom)
}

// CacheTimeline stores a rendered timeline response for a short window.
func CacheTimeline(setSlug, reservableType string, start int64, zoom int, payload []byte) {
	key := timelineKey(setSlug, reservableType, start, zoom)
	if err := Conn.Set(context.Background(), key, payload, timelineTTL).Err(); err != nil {
		log.Printf("Failed to cache timeline %s: %v", key, err)
	}
}

func CachedTimeline(setSlug, reservableType string, start int64, zoom int) ([]byte, bool) {
	key := timelineKey(setSlug, reservableType, start, zoom)
	data, err := Conn.Get(context.Background(), key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// InvalidateTimelines drops every cached timeline view. Called on
// reservation writes; views are keyed by window and zoom, so a
// targeted drop would have to enumerate all windows anyway.
func InvalidateTimelines() {
	ctx := context.Background()
	keys, err := Conn.Keys(ctx, "timeline:*").Result()
	if err != nil {
		log.Println("Redis scan error:", err)
		return
	}
	if len(keys) > 0 {
		Conn.Del(ctx, keys...)
	}
}
