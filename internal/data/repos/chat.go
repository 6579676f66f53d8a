package repos

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

type QuestionChatRepo interface {
	Upsert(dbc dbctx.Context, row *domain.QuestionChat) error
	GetByID(dbc dbctx.Context, id string) (*domain.QuestionChat, error)
	ListByUser(dbc dbctx.Context, userID string, limit int) ([]*domain.QuestionChat, error)
}

type questionChatRepo struct {
	db   *gorm.DB
	log  *logger.Logger
	read reader
}

func NewQuestionChatRepo(db *gorm.DB, baseLog *logger.Logger, readTries uint) QuestionChatRepo {
	log := baseLog.With("repo", "QuestionChatRepo")
	return &questionChatRepo{db: db, log: log, read: newReader(log, readTries)}
}

func (r *questionChatRepo) Upsert(dbc dbctx.Context, row *domain.QuestionChat) error {
	if row == nil || row.ID == "" {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"messages", "updated_at"}),
	}).Create(row).Error
}

func (r *questionChatRepo) GetByID(dbc dbctx.Context, id string) (*domain.QuestionChat, error) {
	if id == "" {
		return nil, nil
	}
	return readWithRetry(dbc.Ctx, r.read, "chat.get", func() (*domain.QuestionChat, error) {
		var out domain.QuestionChat
		if err := dbc.DB(r.db).First(&out, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &out, nil
	})
}

func (r *questionChatRepo) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*domain.QuestionChat, error) {
	return readWithRetry(dbc.Ctx, r.read, "chat.list", func() ([]*domain.QuestionChat, error) {
		q := dbc.DB(r.db).Where("user_id = ?", userID).Order("updated_at DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		var out []*domain.QuestionChat
		if err := q.Find(&out).Error; err != nil {
			return nil, err
		}
		return out, nil
	})
}
