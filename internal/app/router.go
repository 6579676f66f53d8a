package app

import (
	"github.com/gin-gonic/gin"

	httpserver "github.com/yungbote/enemia-backend/internal/http"
	"github.com/yungbote/enemia-backend/internal/platform/config"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg config.Config, h Handlers, mw Middleware) httpserver.RouterConfig {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	rc := httpserver.RouterConfig{
		Log:              log,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		RequestTimeout:   cfg.HTTP.RequestTimeout,
		AuthMiddleware:   mw.Auth,
		FlashcardHandler: h.Flashcard,
		QuestionHandler:  h.Question,
		ChatHandler:      h.Chat,
		ExamHandler:      h.Exam,
		ResearchHandler:  h.Research,
		DocsHandler:      h.Docs,
		HealthHandler:    h.Health,
	}
	if cfg.OTel.Enabled {
		rc.ServiceName = serviceName
	}
	return rc
}
