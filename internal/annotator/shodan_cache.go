package annotator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

const shodanCachePrefix = "shodan|"

// shodanHost is the part of a Shodan host response the annotator uses
type shodanHost struct {
	OS        *string   `json:"os"`
	Ports     []int     `json:"ports"`
	Found     bool      `json:"found"`
	FetchedAt time.Time `json:"fetched_at"`
}

// shodanCache keeps Shodan responses between runs
type shodanCache struct {
	db  *pebble.DB
	ttl time.Duration
}

func openShodanCache(dir string, ttl time.Duration) (*shodanCache, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("shodan cache open: %w", err)
	}
	return &shodanCache{db: db, ttl: ttl}, nil
}

// get returns a cached response that has not expired
func (c *shodanCache) get(addr string) (shodanHost, bool) {
	if c == nil {
		return shodanHost{}, false
	}
	data, closer, err := c.db.Get([]byte(shodanCachePrefix + addr))
	if err != nil {
		return shodanHost{}, false
	}
	defer closer.Close()

	var h shodanHost
	if err := json.Unmarshal(data, &h); err != nil {
		return shodanHost{}, false
	}
	if c.ttl > 0 && time.Since(h.FetchedAt) > c.ttl {
		return shodanHost{}, false
	}
	return h, true
}

func (c *shodanCache) put(addr string, h shodanHost) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return c.db.Set([]byte(shodanCachePrefix+addr), data, pebble.Sync)
}

func (c *shodanCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
