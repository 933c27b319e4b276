// Package cache wraps Redis for the cross-process caches: the document
// upsert ledger and the Drive folder listing cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fridayhq/friday/models"
)

const (
	ledgerKeyPrefix  = "indexed:"
	listingKeyPrefix = "drive:listing:"

	// listingTTL keeps folder listings fresh enough while absorbing the
	// extension's bursty repeat requests.
	listingTTL = 5 * time.Minute
)

func Conn(ctx context.Context, host, port, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    pass,
		DB:          db,
	})
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Seen reports whether a document ledger key has been recorded. Implements
// the indexer's Ledger.
func (c *Cache) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, ledgerKeyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records a document ledger key. Ledger entries do not expire; an edited
// document gets a new key via its changed content length.
func (c *Cache) Mark(ctx context.Context, key string) error {
	return c.client.Set(ctx, ledgerKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), 0).Err()
}

// GetListing returns a cached folder listing, or ok=false on a miss.
func (c *Cache) GetListing(ctx context.Context, folderID string) ([]models.FileRef, bool, error) {
	val, err := c.client.Get(ctx, listingKeyPrefix+folderID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var refs []models.FileRef
	if err := json.Unmarshal([]byte(val), &refs); err != nil {
		return nil, false, err
	}
	return refs, true, nil
}

// SetListing caches a folder listing for listingTTL.
func (c *Cache) SetListing(ctx context.Context, folderID string, refs []models.FileRef) error {
	data, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingKeyPrefix+folderID, data, listingTTL).Err()
}

// InvalidateListing drops a cached folder listing.
func (c *Cache) InvalidateListing(ctx context.Context, folderID string) error {
	return c.client.Del(ctx, listingKeyPrefix+folderID).Err()
}
