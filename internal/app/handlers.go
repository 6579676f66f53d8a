package app

import (
	httpH "github.com/yungbote/enemia-backend/internal/http/handlers"
)

type Handlers struct {
	Flashcard *httpH.FlashcardHandler
	Question  *httpH.QuestionHandler
	Chat      *httpH.ChatHandler
	Exam      *httpH.ExamHandler
	Research  *httpH.ResearchHandler
	Docs      *httpH.DocsHandler
	Health    *httpH.HealthHandler
}

func wireHandlers(svcs Services, health map[string]httpH.Pinger) Handlers {
	return Handlers{
		Flashcard: httpH.NewFlashcardHandler(svcs.Flashcards),
		Question:  httpH.NewQuestionHandler(svcs.Questions),
		Chat:      httpH.NewChatHandler(svcs.Chat),
		Exam:      httpH.NewExamHandler(svcs.Exams),
		Research:  httpH.NewResearchHandler(svcs.Research),
		Docs:      httpH.NewDocsHandler(),
		Health:    httpH.NewHealthHandler(health),
	}
}

func (a *App) healthDeps() map[string]httpH.Pinger {
	deps := map[string]httpH.Pinger{}
	if sqlDB, err := a.DB.DB(); err == nil {
		deps["database"] = sqlDB
	}
	if a.Clients.cachePinger != nil {
		deps["cache"] = a.Clients.cachePinger
	}
	return deps
}
