package http

import (
	"github.com/gin-gonic/gin"
)

// APIResponse is the uniform envelope for JSON endpoints. Error responses
// also carry `detail` so clients written against the FastAPI-style contract
// keep working.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    int         `json:"code"`
	Detail  string      `json:"detail,omitempty"`
}

// RespondSuccess writes a success envelope.
func RespondSuccess(c *gin.Context, statusCode int, data interface{}, message string) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
		Message: message,
		Code:    statusCode,
	})
}

// RespondError writes a failure envelope. The message doubles as the detail
// field.
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Message: message,
		Code:    statusCode,
		Detail:  message,
	})
}
