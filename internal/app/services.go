package app

import (
	"fmt"

	"github.com/yungbote/enemia-backend/internal/modules/generation"
	"github.com/yungbote/enemia-backend/internal/modules/research"
	"github.com/yungbote/enemia-backend/internal/platform/config"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Flashcards services.FlashcardService
	Questions  services.QuestionService
	Chat       services.ChatService
	Exams      services.ExamService
	Research   services.ResearchService
}

func wireServices(log *logger.Logger, cfg config.Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	now := services.SystemClock

	runner, err := research.NewDefaultRunner(log, clients.LLM)
	if err != nil {
		return Services{}, fmt.Errorf("init research pipeline: %w", err)
	}

	return Services{
		Auth: services.NewAuthService(log, cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience),
		Flashcards: services.NewFlashcardService(log, repos.Flashcards, repos.Questions,
			generation.NewFlashcardGenerator(log, clients.LLM), now),
		Questions: services.NewQuestionService(log, repos.Questions, now),
		Chat:      services.NewChatService(log, repos.Chats, repos.Questions, clients.LLM, now),
		Exams: services.NewExamService(log, repos.Exams, repos.Questions,
			generation.NewQuestionGenerator(log, clients.LLM, clients.Cache), now),
		Research: services.NewResearchService(log, repos.Research, runner, now),
	}, nil
}
