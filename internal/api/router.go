package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rehab-service/internal/middleware"
	"rehab-service/internal/service"
	"rehab-service/internal/service/game"
	"rehab-service/internal/ws"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Hub)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/api")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.GET("/line/start", handler.LineStart)
			authGroup.GET("/line/callback", handler.LineCallback)
			authGroup.POST("/dev", handler.DevLogin)
			authGroup.GET("/me", middleware.AuthRequired(), handler.Me)
		}

		userGroup := v1.Group("/user")
		userGroup.Use(middleware.AuthRequired())
		{
			userGroup.GET("/profile", handler.GetProfile)
			userGroup.PUT("/profile", handler.UpdateProfile)
		}

		gameGroup := v1.Group("/games")
		{
			gameGroup.GET("", handler.ListGames)
			gameGroup.POST("", middleware.AuthRequired(), handler.CreateGame)
			gameGroup.GET("/mine", middleware.AuthRequired(), handler.MyGames)
			gameGroup.GET("/:id", handler.GetGame)
			gameGroup.PUT("/:id", middleware.UserOrAdmin(), handler.UpdateGame)
			gameGroup.DELETE("/:id", middleware.UserOrAdmin(), handler.DeleteGame)
			gameGroup.PUT("/:id/status", middleware.UserOrAdmin(), handler.SetGameStatus)
			gameGroup.POST("/:id/enroll", middleware.AuthRequired(), handler.Enroll)
			gameGroup.DELETE("/:id/enroll", middleware.AuthRequired(), handler.CancelEnrollment)
			gameGroup.GET("/:id/players", handler.Roster)
		}

		matchGroup := v1.Group("/match")
		{
			matchGroup.GET("/live-status/:id", middleware.OptionalAuth(), handler.LiveStatus)

			mutations := matchGroup.Group("")
			mutations.Use(middleware.UserOrAdmin())
			{
				mutations.POST("/start", handler.StartMatch)
				mutations.POST("/finish", handler.FinishMatch)
				mutations.POST("/checkin", handler.CheckIn)
			}
		}
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.AdminLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.AdminAuthRequired())
		{
			protected.PUT("/auth/password", handler.AdminChangePassword)
			protected.GET("/users", handler.AdminListUsers)
			protected.GET("/users/:id", handler.AdminGetUser)
			protected.PUT("/users/:id/ban", handler.AdminBanUser)
			protected.GET("/games", handler.AdminListGames)
		}
	}

	r.GET("/ws", wsHandler.HandleWS)
}

// writeError maps service errors onto HTTP statuses. Rejections keep the
// service's message so the board can show it to the operator.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, appErr.ErrUnauthorized),
		errors.Is(err, appErr.ErrInvalidLoginState),
		errors.Is(err, appErr.ErrInvalidAdminPassword):
		status = http.StatusUnauthorized
	case errors.Is(err, appErr.ErrForbidden),
		errors.Is(err, appErr.ErrUserBanned),
		errors.Is(err, appErr.ErrAdminDisabled),
		errors.Is(err, appErr.ErrDevLoginDisabled):
		status = http.StatusForbidden
	case errors.Is(err, appErr.ErrUserNotFound),
		errors.Is(err, appErr.ErrAdminNotFound),
		errors.Is(err, appErr.ErrGameNotFound),
		errors.Is(err, appErr.ErrPlayerNotFound),
		errors.Is(err, appErr.ErrMatchNotFound),
		errors.Is(err, appErr.ErrNotEnrolled):
		status = http.StatusNotFound
	case errors.Is(err, appErr.ErrGameFull),
		errors.Is(err, appErr.ErrGameClosed),
		errors.Is(err, appErr.ErrAlreadyEnrolled),
		errors.Is(err, appErr.ErrEnrollmentLocked),
		errors.Is(err, appErr.ErrHostCannotWithdraw),
		errors.Is(err, appErr.ErrPlayerNotIdle),
		errors.Is(err, appErr.ErrCourtOccupied),
		errors.Is(err, appErr.ErrMatchFinished),
		errors.Is(err, appErr.ErrAlreadyCheckedIn):
		status = http.StatusConflict
	case errors.Is(err, appErr.ErrLiveBusy):
		status = http.StatusTooManyRequests
	case errors.Is(err, appErr.ErrInvalidGame),
		errors.Is(err, appErr.ErrInvalidProfile),
		errors.Is(err, appErr.ErrInvalidUserStatus),
		errors.Is(err, appErr.ErrDuplicatePlayer),
		errors.Is(err, appErr.ErrInvalidCourt),
		errors.Is(err, appErr.ErrInvalidWinner):
		status = http.StatusBadRequest
	case errors.Is(err, appErr.ErrLineExchange):
		status = http.StatusBadGateway
	}
	response.Error(c, status, err.Error())
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	val := c.Query(key)
	if val == "" {
		return nil, nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, val, time.Local); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid %s, expected RFC3339 or '2006-01-02 15:04:05'", key)
}

func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func getAdminID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextAdminIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// getActor reads whichever identity UserOrAdmin attached.
func getActor(c *gin.Context) game.Actor {
	var actor game.Actor
	actor.UserID, _ = getUserID(c)
	actor.AdminID, _ = getAdminID(c)
	return actor
}
