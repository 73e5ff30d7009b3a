package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope every /api endpoint answers with. Success=false with a
// message is an application-level rejection the client shows to the operator.
type Body struct {
	Code    int         `json:"code"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Msg     string      `json:"message"`
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, "")
}

func SuccessWithMsg(c *gin.Context, data interface{}, msg string) {
	JSON(c, http.StatusOK, data, msg)
}

func Error(c *gin.Context, status int, msg string) {
	JSON(c, status, gin.H{}, msg)
}

func JSON(c *gin.Context, status int, data interface{}, msg string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Body{
		Code:    status,
		Success: status >= 200 && status < 300,
		Data:    data,
		Msg:     msg,
	})
}
