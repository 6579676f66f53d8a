package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Question{},
		&domain.Flashcard{},
		&domain.Research{},
		&domain.QuestionChat{},
		&domain.Exam{},
	)
}
