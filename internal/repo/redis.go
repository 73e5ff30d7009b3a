package repo

import (
	"context"
	"fmt"
	"time"

	"rehab-service/internal/config"
	"rehab-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPingTimeout = 3 * time.Second

// RDB backs LINE login state, the per-game start lock and the refresh relay.
var RDB *redis.Client

func InitRedis() {
	conf := config.GlobalConfig.Redis
	rdb, err := OpenRedis(context.Background(), conf)
	if err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.String("addr", conf.Addr), zap.Error(err))
	}
	logger.Log.Info("Redis connected", zap.String("addr", conf.Addr), zap.Int("db", conf.DB))
	RDB = rdb
}

// OpenRedis dials redis and checks it answers a PING. The client is closed
// again when it does not.
func OpenRedis(ctx context.Context, conf config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping %s: %w", conf.Addr, err)
	}
	return rdb, nil
}
