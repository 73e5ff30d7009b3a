package service

import (
	"context"

	"rehab-service/internal/config"
	"rehab-service/internal/service/admin"
	"rehab-service/internal/service/auth"
	"rehab-service/internal/service/game"
	"rehab-service/internal/service/match"
	"rehab-service/internal/service/user"
	"rehab-service/internal/ws"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Auth  *auth.Service
	Admin *admin.Service
	User  *user.Service
	Game  *game.Service
	Match *match.Service
	Hub   *ws.Hub
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	hub := ws.NewHub(rdb, config.GlobalConfig.Live.RefreshTopic)
	games := game.NewService(db)
	return &Container{
		Auth:  auth.NewService(db, rdb),
		Admin: admin.NewService(db),
		User:  user.NewService(db),
		Game:  games,
		Match: match.NewService(db, rdb, games, hub),
		Hub:   hub,
	}
}

// Start seeds the default admin and begins relaying refresh signals. The relay
// stops with ctx.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Admin.EnsureDefaultAdmin(ctx); err != nil {
		return err
	}
	go c.Hub.Run(ctx)
	return nil
}
