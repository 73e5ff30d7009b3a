package api

import (
	"net/http"
	"strings"

	usersvc "rehab-service/internal/service/user"
	"rehab-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type devLoginBody struct {
	Name string `json:"name" binding:"required"`
}

type updateProfileBody struct {
	DisplayName *string `json:"displayName"`
	Avatar      *string `json:"avatar"`
	Level       *int    `json:"level"`
}

func (h *Handler) LineStart(c *gin.Context) {
	start, err := h.services.Auth.BeginLineLogin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, start)
}

func (h *Handler) LineCallback(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	if code == "" || state == "" {
		response.Error(c, http.StatusBadRequest, "code and state are required")
		return
	}

	result, err := h.services.Auth.LineLogin(c.Request.Context(), code, state)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) DevLogin(c *gin.Context) {
	var body devLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Auth.DevLogin(c.Request.Context(), body.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) Me(c *gin.Context) {
	h.GetProfile(c)
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.services.User.GetProfile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, usersvc.ToDTO(*profile))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.services.User.UpdateProfile(c.Request.Context(), userID, usersvc.UpdateProfileRequest{
		DisplayName: body.DisplayName,
		Avatar:      body.Avatar,
		Level:       body.Level,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, usersvc.ToDTO(*updated))
}
