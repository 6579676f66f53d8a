package repos

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

type ResearchRepo interface {
	Create(dbc dbctx.Context, row *domain.Research) error
	GetByID(dbc dbctx.Context, id string) (*domain.Research, error)
	ListByUser(dbc dbctx.Context, userID string, limit int) ([]*domain.Research, error)
}

type researchRepo struct {
	db   *gorm.DB
	log  *logger.Logger
	read reader
}

func NewResearchRepo(db *gorm.DB, baseLog *logger.Logger, readTries uint) ResearchRepo {
	log := baseLog.With("repo", "ResearchRepo")
	return &researchRepo{db: db, log: log, read: newReader(log, readTries)}
}

func (r *researchRepo) Create(dbc dbctx.Context, row *domain.Research) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *researchRepo) GetByID(dbc dbctx.Context, id string) (*domain.Research, error) {
	if id == "" {
		return nil, nil
	}
	return readWithRetry(dbc.Ctx, r.read, "research.get", func() (*domain.Research, error) {
		var out domain.Research
		if err := dbc.DB(r.db).First(&out, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &out, nil
	})
}

func (r *researchRepo) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*domain.Research, error) {
	return readWithRetry(dbc.Ctx, r.read, "research.list", func() ([]*domain.Research, error) {
		q := dbc.DB(r.db).Where("user_id = ?", userID).Order("created_at DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		var out []*domain.Research
		if err := q.Find(&out).Error; err != nil {
			return nil, err
		}
		return out, nil
	})
}
