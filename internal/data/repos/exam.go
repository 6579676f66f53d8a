package repos

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

type ExamPage struct {
	Exams []*domain.Exam
	Total int64
}

type ExamRepo interface {
	Create(dbc dbctx.Context, row *domain.Exam) error
	GetByID(dbc dbctx.Context, id string) (*domain.Exam, error)
	Update(dbc dbctx.Context, row *domain.Exam) error
	ListByUser(dbc dbctx.Context, userID, status string, offset, limit int) (ExamPage, error)
}

type examRepo struct {
	db   *gorm.DB
	log  *logger.Logger
	read reader
}

func NewExamRepo(db *gorm.DB, baseLog *logger.Logger, readTries uint) ExamRepo {
	log := baseLog.With("repo", "ExamRepo")
	return &examRepo{db: db, log: log, read: newReader(log, readTries)}
}

func (r *examRepo) Create(dbc dbctx.Context, row *domain.Exam) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *examRepo) GetByID(dbc dbctx.Context, id string) (*domain.Exam, error) {
	if id == "" {
		return nil, nil
	}
	return readWithRetry(dbc.Ctx, r.read, "exam.get", func() (*domain.Exam, error) {
		var out domain.Exam
		if err := dbc.DB(r.db).First(&out, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &out, nil
	})
}

func (r *examRepo) Update(dbc dbctx.Context, row *domain.Exam) error {
	if row == nil || row.ID == "" {
		return nil
	}
	return dbc.DB(r.db).Save(row).Error
}

func (r *examRepo) ListByUser(dbc dbctx.Context, userID, status string, offset, limit int) (ExamPage, error) {
	return readWithRetry(dbc.Ctx, r.read, "exam.list", func() (ExamPage, error) {
		base := dbc.DB(r.db).Model(&domain.Exam{}).Where("user_id = ?", userID)
		if status != "" {
			base = base.Where("status = ?", status)
		}
		var page ExamPage
		if err := base.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
			return ExamPage{}, err
		}
		q := base.Session(&gorm.Session{}).Order("created_at DESC").Offset(offset)
		if limit > 0 {
			q = q.Limit(limit)
		}
		if err := q.Find(&page.Exams).Error; err != nil {
			return ExamPage{}, err
		}
		return page, nil
	})
}
