package api

import (
	"net/http"

	"rehab-service/internal/service/match"
	"rehab-service/pkg/response"
	"rehab-service/pkg/types"

	"github.com/gin-gonic/gin"
)

func (h *Handler) LiveStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, _ := getUserID(c)

	status, err := h.services.Match.LiveStatus(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, status)
}

func (h *Handler) StartMatch(c *gin.Context) {
	var body types.StartMatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.services.Match.StartMatch(c.Request.Context(), getActor(c), body)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, m)
}

func (h *Handler) FinishMatch(c *gin.Context) {
	var body types.FinishMatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.services.Match.FinishMatch(c.Request.Context(), getActor(c), body)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, m)
}

func (h *Handler) CheckIn(c *gin.Context) {
	var body types.CheckinRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	actor := getActor(c)
	req := match.CheckinRequest{
		UserID:  actor.UserID,
		AdminID: actor.AdminID,
		GameID:  body.GameID,
	}
	if body.PlayerID != nil {
		req.PlayerID = *body.PlayerID
	} else if actor.IsAdmin() {
		response.Error(c, http.StatusBadRequest, "playerId is required for admin check-in")
		return
	}

	player, err := h.services.Match.CheckIn(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, player)
}
