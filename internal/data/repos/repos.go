package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

type Repos struct {
	Flashcards FlashcardRepo
	Questions  QuestionRepo
	Research   ResearchRepo
	Chats      QuestionChatRepo
	Exams      ExamRepo
}

// New wires every repository against db. readTries bounds retries of idempotent reads.
func New(db *gorm.DB, log *logger.Logger, readTries uint) Repos {
	return Repos{
		Flashcards: NewFlashcardRepo(db, log, readTries),
		Questions:  NewQuestionRepo(db, log, readTries),
		Research:   NewResearchRepo(db, log, readTries),
		Chats:      NewQuestionChatRepo(db, log, readTries),
		Exams:      NewExamRepo(db, log, readTries),
	}
}
