package app

import (
	"context"

	"github.com/tumbleweedd/food_ordering_system/internal/cache_impl"
	"github.com/tumbleweedd/food_ordering_system/internal/config"
	listener "github.com/tumbleweedd/food_ordering_system/internal/delivery/kafka"
	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	restaurantRepository "github.com/tumbleweedd/food_ordering_system/internal/repository/restaurant"
	"github.com/tumbleweedd/food_ordering_system/internal/services/restaurant/approve"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

var RestaurantOutbound = []models.MessageType{models.ApprovalResponseMessage}

func NewRestaurantApp(ctx context.Context, log logger.Logger, cfg *config.Config) (*App, error) {
	a, err := newApp(ctx, log, cfg, RestaurantOutbound)
	if err != nil {
		return nil, err
	}

	restaurants := restaurantRepository.NewRestaurantRepository(log, a.db.GetDB())
	catalogue := cache_impl.NewRestaurantCache(cache_impl.NewExpirableLRU(cfg.Cache.Size, cfg.Cache.TTL), restaurants, log)

	handler := listener.NewRestaurantHandler(log, approve.New(log, a.tx, catalogue, restaurants, a.outBox, a.guard))

	a.listen(cfg.Kafka.Topics.RestaurantApprovalRequest, handler.ApprovalRequest)

	return a, nil
}
