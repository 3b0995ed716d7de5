package cache_impl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type CacheI[K comparable, V any] interface {
	Get(key K) (value V, ok bool)
	Add(key K, value V) (evicted bool)
}

type restaurantProvider interface {
	Restaurant(ctx context.Context, restaurantUUID uuid.UUID) (*models.Restaurant, error)
}

// RestaurantCache is a read-through cache of restaurant catalogues. Cached values are shared and must not be mutated.
type RestaurantCache struct {
	cache    CacheI[uuid.UUID, *models.Restaurant]
	provider restaurantProvider
	log      logger.Logger
}

func NewRestaurantCache(
	cache CacheI[uuid.UUID, *models.Restaurant],
	provider restaurantProvider,
	log logger.Logger,
) *RestaurantCache {
	return &RestaurantCache{
		cache:    cache,
		provider: provider,
		log:      log,
	}
}

// NewExpirableLRU is the production backing store of RestaurantCache.
func NewExpirableLRU(size int, ttl time.Duration) *expirable.LRU[uuid.UUID, *models.Restaurant] {
	return expirable.NewLRU[uuid.UUID, *models.Restaurant](size, nil, ttl)
}

func (c *RestaurantCache) Restaurant(ctx context.Context, restaurantUUID uuid.UUID) (*models.Restaurant, error) {
	const op = "cache_impl.RestaurantCache.Restaurant"

	if restaurant, ok := c.cache.Get(restaurantUUID); ok {
		return restaurant, nil
	}

	restaurant, err := c.provider.Restaurant(ctx, restaurantUUID)
	if err != nil {
		return nil, err
	}

	if evicted := c.cache.Add(restaurantUUID, restaurant); evicted {
		c.log.Debug(op, logger.String("result", "evicted"))
	}

	return restaurant, nil
}
