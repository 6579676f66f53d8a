package repos

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

type QuestionRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*domain.Question) error
	GetByID(dbc dbctx.Context, id string) (*domain.Question, error)
	GetByIDs(dbc dbctx.Context, ids []string) ([]*domain.Question, error)
	ListByUser(dbc dbctx.Context, userID string) ([]*domain.Question, error)
	Update(dbc dbctx.Context, row *domain.Question) error
}

type questionRepo struct {
	db   *gorm.DB
	log  *logger.Logger
	read reader
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger, readTries uint) QuestionRepo {
	log := baseLog.With("repo", "QuestionRepo")
	return &questionRepo{db: db, log: log, read: newReader(log, readTries)}
}

func (r *questionRepo) CreateBatch(dbc dbctx.Context, rows []*domain.Question) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).CreateInBatches(rows, 100).Error
}

func (r *questionRepo) GetByID(dbc dbctx.Context, id string) (*domain.Question, error) {
	if id == "" {
		return nil, nil
	}
	return readWithRetry(dbc.Ctx, r.read, "question.get", func() (*domain.Question, error) {
		var out domain.Question
		if err := dbc.DB(r.db).First(&out, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if err := out.Validate(); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// GetByIDs returns the found questions in the order of ids; missing ids are skipped.
func (r *questionRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*domain.Question, error) {
	if len(ids) == 0 {
		return []*domain.Question{}, nil
	}
	rows, err := readWithRetry(dbc.Ctx, r.read, "question.get_many", func() ([]*domain.Question, error) {
		var out []*domain.Question
		if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Question, len(rows))
	for _, q := range rows {
		byID[q.ID] = q
	}
	ordered := make([]*domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func (r *questionRepo) ListByUser(dbc dbctx.Context, userID string) ([]*domain.Question, error) {
	return readWithRetry(dbc.Ctx, r.read, "question.list", func() ([]*domain.Question, error) {
		var out []*domain.Question
		if err := dbc.DB(r.db).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error; err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (r *questionRepo) Update(dbc dbctx.Context, row *domain.Question) error {
	if row == nil || row.ID == "" {
		return nil
	}
	return dbc.DB(r.db).Save(row).Error
}
