package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dropx/internal/config"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

const routeTTL = 24 * time.Hour

// RouteCache caches computed routes in Redis in front of the routing
// provider. City coordinates do not move, so a generous TTL is fine. Cache
// failures fall through to the provider.
type RouteCache struct {
	client *redis.Client
	next   ports.IRouteProvider
	mylog  mylogger.Logger
}

func NewRouteCache(cfg *config.Redisconfig, next ports.IRouteProvider, mylog mylogger.Logger) *RouteCache {
	return &RouteCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		next:   next,
		mylog:  mylog,
	}
}

func routeKey(originLat, originLng, destLat, destLng float64) string {
	// Four decimal places is ~11m, well under city resolution.
	return fmt.Sprintf("route:%.4f,%.4f:%.4f,%.4f", originLat, originLng, destLat, destLng)
}

func (rc *RouteCache) ComputeRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (ports.RouteResult, error) {
	key := routeKey(originLat, originLng, destLat, destLng)

	raw, err := rc.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached ports.RouteResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		rc.mylog.Warn("route cache holds unreadable entry", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		rc.mylog.Warn("route cache read failed", "error", err.Error())
	}

	result, err := rc.next.ComputeRoute(ctx, originLat, originLng, destLat, destLng)
	if err != nil {
		return result, err
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := rc.client.Set(ctx, key, raw, routeTTL).Err(); err != nil {
			rc.mylog.Warn("route cache write failed", "error", err.Error())
		}
	}
	return result, nil
}

func (rc *RouteCache) Close() error {
	return rc.client.Close()
}
