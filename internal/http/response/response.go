package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enemia-backend/internal/platform/apierr"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Success: false, Error: msg, Code: code})
}

// RespondErr maps a service error onto its status and code. Anything that is not an
// *apierr.Error is reported as a 500 without leaking its text.
func RespondErr(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status > 0 && ae.Status < http.StatusInternalServerError {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	if ae != nil && ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
		msg := "internal server error"
		switch {
		case errors.Is(err, apierr.ErrGenerationParse):
			msg = "the generated content could not be parsed"
		case errors.Is(err, apierr.ErrUnavailable):
			msg = "a required service is unavailable"
		}
		RespondError(c, ae.Status, ae.Code, errors.New(msg))
		return
	}
	_ = c.Error(err)
	RespondError(c, http.StatusInternalServerError, "internal_server_error", errors.New("internal server error"))
}

// RespondOK writes {"success": true, "message"?: message, ...payload}.
func RespondOK(c *gin.Context, message string, payload gin.H) {
	respond(c, http.StatusOK, message, payload)
}

func RespondCreated(c *gin.Context, message string, payload gin.H) {
	respond(c, http.StatusCreated, message, payload)
}

func respond(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		if k == "success" || k == "message" {
			continue
		}
		body[k] = v
	}
	c.JSON(status, body)
}
