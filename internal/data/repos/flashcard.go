package repos

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/modules/srs"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

type FlashcardFilter string

const (
	FilterAll      FlashcardFilter = ""
	FilterDue      FlashcardFilter = "due"
	FilterNew      FlashcardFilter = "new"
	FilterLearning FlashcardFilter = "learning"
	FilterReview   FlashcardFilter = "review"
)

func (f FlashcardFilter) Valid() bool {
	switch f {
	case FilterAll, FilterDue, FilterNew, FilterLearning, FilterReview:
		return true
	}
	return false
}

type FlashcardRepo interface {
	Create(dbc dbctx.Context, card *domain.Flashcard) error
	GetByID(dbc dbctx.Context, id string) (*domain.Flashcard, error)
	Update(dbc dbctx.Context, card *domain.Flashcard) error
	Delete(dbc dbctx.Context, id string) error
	ListByUser(dbc dbctx.Context, userID string, filter FlashcardFilter, now time.Time, limit int) ([]*domain.Flashcard, error)
	Stats(dbc dbctx.Context, userID string, now time.Time) (domain.FlashcardStats, error)
}

type flashcardRepo struct {
	db   *gorm.DB
	log  *logger.Logger
	read reader
}

func NewFlashcardRepo(db *gorm.DB, baseLog *logger.Logger, readTries uint) FlashcardRepo {
	log := baseLog.With("repo", "FlashcardRepo")
	return &flashcardRepo{db: db, log: log, read: newReader(log, readTries)}
}

func (r *flashcardRepo) Create(dbc dbctx.Context, card *domain.Flashcard) error {
	if card == nil {
		return nil
	}
	return dbc.DB(r.db).Create(card).Error
}

func (r *flashcardRepo) GetByID(dbc dbctx.Context, id string) (*domain.Flashcard, error) {
	if id == "" {
		return nil, nil
	}
	return readWithRetry(dbc.Ctx, r.read, "flashcard.get", func() (*domain.Flashcard, error) {
		var out domain.Flashcard
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

// Update writes the full row. There is no version check: the last writer wins.
func (r *flashcardRepo) Update(dbc dbctx.Context, card *domain.Flashcard) error {
	if card == nil || card.ID == "" {
		return nil
	}
	return dbc.DB(r.db).Save(card).Error
}

func (r *flashcardRepo) Delete(dbc dbctx.Context, id string) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&domain.Flashcard{}).Error
}

func (r *flashcardRepo) ListByUser(dbc dbctx.Context, userID string, filter FlashcardFilter, now time.Time, limit int) ([]*domain.Flashcard, error) {
	if !filter.Valid() {
		return nil, fmt.Errorf("unknown flashcard filter %q", filter)
	}
	return readWithRetry(dbc.Ctx, r.read, "flashcard.list", func() ([]*domain.Flashcard, error) {
		q := dbc.DB(r.db).Where("user_id = ?", userID)
		switch filter {
		case FilterDue:
			q = q.Where("next_review <= ?", now).Order("next_review ASC")
		case FilterNew:
			q = q.Where("repetitions = 0")
		case FilterLearning:
			q = q.Where("repetitions < ?", srs.LearningRepetitions)
		case FilterReview:
			q = q.Where("repetitions >= ?", srs.LearningRepetitions)
		}
		if filter != FilterDue {
			q = q.Order("created_at DESC")
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		var out []*domain.Flashcard
		if err := q.Find(&out).Error; err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Stats buckets cards as new (never passed), learning (1-2 passes) or review (3+). The learning
// list filter also includes new cards; the stats buckets do not overlap.
func (r *flashcardRepo) Stats(dbc dbctx.Context, userID string, now time.Time) (domain.FlashcardStats, error) {
	return readWithRetry(dbc.Ctx, r.read, "flashcard.stats", func() (domain.FlashcardStats, error) {
		var row struct {
			TotalCount    int64
			DueCount      int64
			NewCount      int64
			LearningCount int64
		}
		err := dbc.DB(r.db).Model(&domain.Flashcard{}).
			Select(`COUNT(*) AS total_count,
				COALESCE(SUM(CASE WHEN next_review <= ? THEN 1 ELSE 0 END), 0) AS due_count,
				COALESCE(SUM(CASE WHEN repetitions = 0 THEN 1 ELSE 0 END), 0) AS new_count,
				COALESCE(SUM(CASE WHEN repetitions > 0 AND repetitions < ? THEN 1 ELSE 0 END), 0) AS learning_count`,
				now, srs.LearningRepetitions).
			Where("user_id = ?", userID).
			Scan(&row).Error
		if err != nil {
			return domain.FlashcardStats{}, err
		}
		return domain.FlashcardStats{
			TotalFlashcards: int(row.TotalCount),
			DueToday:        int(row.DueCount),
			NewCards:        int(row.NewCount),
			LearningCards:   int(row.LearningCount),
			ReviewCards:     int(row.TotalCount - row.NewCount - row.LearningCount),
		}, nil
	})
}
