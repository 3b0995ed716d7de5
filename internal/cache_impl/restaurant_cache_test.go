package cache_impl

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type countingProvider struct {
	calls int
	known map[uuid.UUID]*models.Restaurant
}

func (p *countingProvider) Restaurant(_ context.Context, restaurantUUID uuid.UUID) (*models.Restaurant, error) {
	p.calls++

	restaurant, ok := p.known[restaurantUUID]
	if !ok {
		return nil, internalErrors.ErrRestaurantNotFound
	}

	return restaurant, nil
}

func TestRestaurantCache(t *testing.T) {
	restaurantUUID := uuid.New()
	provider := &countingProvider{known: map[uuid.UUID]*models.Restaurant{
		restaurantUUID: {RestaurantUUID: restaurantUUID, Active: true},
	}}

	c := NewRestaurantCache(NewExpirableLRU(8, time.Minute), provider, logger.NewSlogLogger(logger.EnvLocal))
	ctx := context.Background()

	tCases := []struct {
		name      string
		id        uuid.UUID
		wantErr   error
		wantCalls int
	}{
		{name: "miss_loads", id: restaurantUUID, wantCalls: 1},
		{name: "hit_is_served_from_cache", id: restaurantUUID, wantCalls: 1},
		{name: "unknown_is_not_cached", id: uuid.New(), wantErr: internalErrors.ErrRestaurantNotFound, wantCalls: 2},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			restaurant, err := c.Restaurant(ctx, tCase.id)
			require.Equal(t, tCase.wantCalls, provider.calls)
			if tCase.wantErr != nil {
				require.ErrorIs(t, err, tCase.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tCase.id, restaurant.RestaurantUUID)
		})
	}
}

func TestRestaurantCacheExpires(t *testing.T) {
	restaurantUUID := uuid.New()
	provider := &countingProvider{known: map[uuid.UUID]*models.Restaurant{
		restaurantUUID: {RestaurantUUID: restaurantUUID},
	}}

	c := NewRestaurantCache(NewExpirableLRU(8, 20*time.Millisecond), provider, logger.NewSlogLogger(logger.EnvLocal))

	_, err := c.Restaurant(context.Background(), restaurantUUID)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = c.Restaurant(context.Background(), restaurantUUID)
	require.NoError(t, err)
	require.Equal(t, 2, provider.calls)
}
