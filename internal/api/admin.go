package api

import (
	"net/http"
	"time"

	"rehab-service/internal/model"
	usersvc "rehab-service/internal/service/user"
	"rehab-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type adminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminPasswordBody struct {
	Current string `json:"current" binding:"required"`
	Next    string `json:"next" binding:"required"`
}

type adminUserBanBody struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type adminUserView struct {
	ID          int64     `json:"id"`
	LineUserID  string    `json:"lineUserId,omitempty"`
	DisplayName string    `json:"displayName"`
	Avatar      string    `json:"avatar,omitempty"`
	Level       int       `json:"level"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toAdminUserView(u model.User) adminUserView {
	v := adminUserView{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Level:       u.Level,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
	}
	if u.LineUserID != nil {
		v.LineUserID = *u.LineUserID
	}
	return v
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body adminLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Admin.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *Handler) AdminChangePassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body adminPasswordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.services.Admin.ChangePassword(c.Request.Context(), adminID, body.Current, body.Next); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "password updated")
}

func (h *Handler) AdminListUsers(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.User.AdminListUsers(c.Request.Context(), usersvc.AdminListUsersFilter{
		Page:        page,
		Size:        size,
		Status:      c.Query("status"),
		NameKeyword: c.Query("keyword"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]adminUserView, 0, len(result.Items))
	for _, u := range result.Items {
		items = append(items, toAdminUserView(u))
	}
	response.Success(c, gin.H{
		"items": items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) AdminGetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.services.User.GetProfile(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toAdminUserView(*user)})
}

func (h *Handler) AdminBanUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body adminUserBanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.services.User.AdminUpdateUserStatus(c.Request.Context(), id, body.Status, body.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toAdminUserView(*user)})
}

func (h *Handler) AdminListGames(c *gin.Context) {
	h.ListGames(c)
}
