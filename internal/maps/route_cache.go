// README: Redis read-through cache in front of a route provider.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"pickmeup/internal/types"
)

type Router interface {
	GetRoute(ctx context.Context, origin, destination types.Point, waypoints []types.Point) (*types.Route, error)
}

type CachedRouter struct {
	next Router
	rdb  *redis.Client
	ttl  time.Duration
	log  logrus.FieldLogger
}

func NewCachedRouter(next Router, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedRouter {
	return &CachedRouter{next: next, rdb: rdb, ttl: ttl, log: log.WithField("component", "route_cache")}
}

// GetRoute serves from cache when possible. Cache failures degrade to a
// direct lookup; only the provider's error is returned.
func (c *CachedRouter) GetRoute(ctx context.Context, origin, destination types.Point, waypoints []types.Point) (*types.Route, error) {
	key := routeKey(origin, destination, waypoints)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached types.Route
		if jerr := json.Unmarshal(raw, &cached); jerr == nil {
			return &cached, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).Warn("route cache read failed")
	}

	route, err := c.next.GetRoute(ctx, origin, destination, waypoints)
	if err != nil {
		return nil, err
	}
	if payload, jerr := json.Marshal(route); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			c.log.WithError(serr).Warn("route cache write failed")
		}
	}
	return route, nil
}

func routeKey(origin, destination types.Point, waypoints []types.Point) string {
	var b strings.Builder
	b.WriteString("route:")
	b.WriteString(latLng(origin))
	b.WriteString(">")
	b.WriteString(latLng(destination))
	for _, w := range waypoints {
		b.WriteString("|")
		b.WriteString(latLng(w))
	}
	return b.String()
}
