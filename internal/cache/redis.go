package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/avdeyev/flightapp/internal/model"
)

// Redis is an ItineraryCache backed by a shared Redis instance, for
// deployments where searches and bookings may land on different processes.
// Each session's result set is one JSON value with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed cache.
func NewRedis(addr, password string, db int, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl:    ttl,
	}
}

// Put replaces the session's result set wholesale.
func (c *Redis) Put(ctx context.Context, session uuid.UUID, itineraries []model.Itinerary) error {
	payload, err := json.Marshal(itineraries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(session), payload, c.ttl).Err()
}

// Get returns the itinerary the session's last search assigned to index.
func (c *Redis) Get(ctx context.Context, session uuid.UUID, index int) (model.Itinerary, bool, error) {
	data, err := c.client.Get(ctx, searchKey(session)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Itinerary{}, false, nil
		}
		return model.Itinerary{}, false, err
	}
	var set []model.Itinerary
	if err := json.Unmarshal(data, &set); err != nil {
		return model.Itinerary{}, false, err
	}
	if index < 0 || index >= len(set) {
		return model.Itinerary{}, false, nil
	}
	return set[index], true, nil
}

// Clear drops the session's result set.
func (c *Redis) Clear(ctx context.Context, session uuid.UUID) error {
	return c.client.Del(ctx, searchKey(session)).Err()
}

func searchKey(session uuid.UUID) string {
	return fmt.Sprintf("search:%s", session)
}

var _ ItineraryCache = (*Redis)(nil)
