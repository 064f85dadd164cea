package response

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
)

// ErrorBody is the error contract: {"error": <message>, "code": <code>}.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MessageBody carries informational responses such as an empty schedule.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON sends a bare JSON payload.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Message responds with {"message": msg}.
func Message(c *gin.Context, status int, msg string) {
	JSON(c, status, MessageBody{Message: msg})
}

// Accepted responds with HTTP 202 Accepted.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data)
}

// Error sends an error response converting the error to the common structure.
// Unexpected errors surface as a generic internal error without their cause.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	JSON(c, appErr.Status, ErrorBody{Error: appErr.Message, Code: appErr.Code})
}

// Binary streams a file download.
func Binary(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, data)
}
