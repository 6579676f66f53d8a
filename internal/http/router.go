package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/enemia-backend/internal/http/handlers"
	httpMW "github.com/yungbote/enemia-backend/internal/http/middleware"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	RequestTimeout time.Duration

	AuthMiddleware *httpMW.AuthMiddleware

	FlashcardHandler *httpH.FlashcardHandler
	QuestionHandler  *httpH.QuestionHandler
	ChatHandler      *httpH.ChatHandler
	ExamHandler      *httpH.ExamHandler
	ResearchHandler  *httpH.ResearchHandler
	DocsHandler      *httpH.DocsHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(httpMW.RequestTimeout(cfg.RequestTimeout))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/v1")
	{
		// Docs (public)
		if cfg.DocsHandler != nil {
			api.GET("/docs/openapi.yaml", cfg.DocsHandler.OpenAPI)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Flashcards
		if cfg.FlashcardHandler != nil {
			protected.POST("/flashcards", cfg.FlashcardHandler.Create)
			protected.GET("/flashcards", cfg.FlashcardHandler.List)
			protected.GET("/flashcards/due", cfg.FlashcardHandler.Due)
			protected.GET("/flashcards/stats", cfg.FlashcardHandler.Stats)
			protected.POST("/flashcards/from-question/:question_id", cfg.FlashcardHandler.CreateFromQuestion)
			protected.GET("/flashcards/:id", cfg.FlashcardHandler.Get)
			protected.PUT("/flashcards/:id", cfg.FlashcardHandler.Update)
			protected.DELETE("/flashcards/:id", cfg.FlashcardHandler.Delete)
			protected.POST("/flashcards/:id/review", cfg.FlashcardHandler.Review)
		}

		// Questions
		if cfg.QuestionHandler != nil {
			protected.POST("/questions/:question_id/rate", cfg.QuestionHandler.Rate)
			protected.GET("/questions/errors", cfg.QuestionHandler.ErrorQuestions)
		}

		// Tutoring chat
		if cfg.ChatHandler != nil {
			protected.POST("/questions/:question_id/chat/start", cfg.ChatHandler.Start)
			protected.POST("/questions/chat/:chat_id/continue", cfg.ChatHandler.Continue)
			protected.GET("/questions/chat/history", cfg.ChatHandler.History)
			protected.GET("/questions/chat/:chat_id", cfg.ChatHandler.Get)
		}

		// Exams
		if cfg.ExamHandler != nil {
			protected.POST("/exams/generate", cfg.ExamHandler.Generate)
			protected.GET("/exams/history", cfg.ExamHandler.History)
			protected.GET("/exams/:exam_id", cfg.ExamHandler.Get)
			protected.POST("/exams/:exam_id/start", cfg.ExamHandler.Start)
			protected.POST("/exams/:exam_id/submit", cfg.ExamHandler.Submit)
		}

		// Research
		if cfg.ResearchHandler != nil {
			protected.POST("/research/create", cfg.ResearchHandler.Create)
			protected.GET("/research", cfg.ResearchHandler.List)
			protected.GET("/research/:research_id", cfg.ResearchHandler.Get)
		}
	}

	return r
}
