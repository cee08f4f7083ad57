package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func JSONError(c *gin.Context, code int, errCode, message string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": ErrorBody{Code: errCode, Message: message}})
}

// RespondError maps a service error onto the JSON envelope. Server-side
// failures are logged with the underlying error; client errors carry the
// error text as details.
func RespondError(c *gin.Context, err error) {
	appErr := ToAppError(err)

	fields := logrus.Fields{
		"status": appErr.StatusCode,
		"code":   appErr.Code,
		"path":   c.Request.URL.Path,
	}
	if appErr.Err != nil {
		fields["error"] = appErr.Err.Error()
	}

	body := ErrorBody{Code: appErr.Code, Message: appErr.Message}
	if appErr.StatusCode >= 500 {
		Logger.WithFields(fields).Error(appErr.Message)
	} else {
		Logger.WithFields(fields).Debug(appErr.Message)
		if appErr.Err != nil {
			body.Details = appErr.Err.Error()
		}
	}

	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{"success": false, "error": body})
}
