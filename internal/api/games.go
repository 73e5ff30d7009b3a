package api

import (
	"net/http"
	"strings"

	"rehab-service/internal/service/game"
	"rehab-service/pkg/response"
	"rehab-service/pkg/types"

	"github.com/gin-gonic/gin"
)

type gameStatusBody struct {
	Status string `json:"status" binding:"required,oneof=open closed"`
}

func (h *Handler) ListGames(c *gin.Context) {
	filter, ok := parseListFilter(c)
	if !ok {
		return
	}

	result, err := h.services.Game.ListGames(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  filter.Page,
		"size":  filter.Size,
	})
}

func parseListFilter(c *gin.Context) (game.ListFilter, bool) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return game.ListFilter{}, false
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return game.ListFilter{}, false
	}
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return game.ListFilter{}, false
	}
	hostID, err := parsePositiveIntQuery(c, "hostId", 0)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return game.ListFilter{}, false
	}
	open := strings.TrimSpace(c.Query("open"))
	return game.ListFilter{
		Page:     page,
		Size:     size,
		From:     from,
		HostID:   int64(hostID),
		OpenOnly: open == "1" || strings.EqualFold(open, "true"),
	}, true
}

func (h *Handler) GetGame(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	g, err := h.services.Game.GetGame(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, g)
}

func (h *Handler) CreateGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body types.GameInput
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.services.Game.CreateGame(c.Request.Context(), userID, body)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, created)
}

func (h *Handler) UpdateGame(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body types.GameInput
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.services.Game.UpdateGame(c.Request.Context(), getActor(c), id, body)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, updated)
}

func (h *Handler) DeleteGame(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.services.Game.DeleteGame(c.Request.Context(), getActor(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "deleted")
}

func (h *Handler) SetGameStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body gameStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.services.Game.SetStatus(c.Request.Context(), getActor(c), id, body.Status); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"status": body.Status})
}

func (h *Handler) MyGames(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	games, err := h.services.Game.MyGames(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, games)
}

func (h *Handler) Enroll(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	player, err := h.services.Game.Enroll(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, player)
}

func (h *Handler) CancelEnrollment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.services.Game.CancelEnrollment(c.Request.Context(), id, userID); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "cancelled")
}

func (h *Handler) Roster(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	players, err := h.services.Game.Roster(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, players)
}
