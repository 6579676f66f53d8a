package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/ctxutil"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

// RequestLogger writes one line per request, tagged with the resource the route addresses
// (flashcards, questions, exams...) and the ids bound from its path.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		td := ctxutil.GetTraceData(c.Request.Context())
		rd := ctxutil.GetRequestData(c.Request.Context())

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		fields = append(fields, routeFields(c)...)
		if td != nil {
			if td.TraceID != "" {
				fields = append(fields, "trace_id", td.TraceID)
			}
			if td.RequestID != "" {
				fields = append(fields, "request_id", td.RequestID)
			}
		}
		if rd != nil && rd.UserID != "" {
			fields = append(fields, "user_id", rd.UserID)
		}
		if len(c.Errors) > 0 {
			last := c.Errors.Last().Err
			fields = append(fields, "error", last.Error())
			var ae *apierr.Error
			if errors.As(last, &ae) && ae.Code != "" {
				fields = append(fields, "error_code", ae.Code)
			}
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// routeFields names the resource from the route's first segment under /v1 and logs each bound path
// parameter. A bare ":id" is qualified by the resource, so /v1/flashcards/:id logs flashcard_id.
func routeFields(c *gin.Context) []interface{} {
	route := strings.TrimPrefix(c.FullPath(), "/v1/")
	if route == "" || route == c.FullPath() {
		return nil
	}
	resource := strings.SplitN(route, "/", 2)[0]
	fields := []interface{}{"resource", resource}
	for _, p := range c.Params {
		if p.Value == "" {
			continue
		}
		key := p.Key
		if key == "id" {
			key = strings.TrimSuffix(resource, "s") + "_id"
		}
		fields = append(fields, key, p.Value)
	}
	return fields
}
