package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/enemia-backend/internal/data/repos"
	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/modules/generation"
	"github.com/yungbote/enemia-backend/internal/modules/srs"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

const (
	defaultFlashcardLimit = 50
	maxFlashcardLimit     = 100
)

type CreateFlashcardInput struct {
	Front            string
	Back             string
	Tags             []string
	MediaAttachments []string
	UserNotes        string
}

// FlashcardPatch updates only the fields that are set.
type FlashcardPatch struct {
	Front            *string   `json:"front"`
	Back             *string   `json:"back"`
	Tags             *[]string `json:"tags"`
	MediaAttachments *[]string `json:"mediaAttachments"`
	UserNotes        *string   `json:"userNotes"`
}

type FlashcardService interface {
	Create(dbc dbctx.Context, in CreateFlashcardInput) (*domain.Flashcard, error)
	Get(dbc dbctx.Context, id string) (*domain.Flashcard, error)
	Update(dbc dbctx.Context, id string, patch FlashcardPatch) (*domain.Flashcard, error)
	Delete(dbc dbctx.Context, id string) error
	List(dbc dbctx.Context, filter string, limit int) ([]*domain.Flashcard, error)
	Due(dbc dbctx.Context) ([]*domain.Flashcard, error)
	Stats(dbc dbctx.Context) (domain.FlashcardStats, error)
	Review(dbc dbctx.Context, id string, quality int) (*domain.Flashcard, error)
	CreateFromQuestion(dbc dbctx.Context, questionID string) (*domain.Flashcard, error)
}

type flashcardService struct {
	log        *logger.Logger
	flashcards repos.FlashcardRepo
	questions  repos.QuestionRepo
	generator  *generation.FlashcardGenerator
	now        Clock
}

func NewFlashcardService(log *logger.Logger, flashcards repos.FlashcardRepo, questions repos.QuestionRepo, generator *generation.FlashcardGenerator, now Clock) FlashcardService {
	if now == nil {
		now = SystemClock
	}
	return &flashcardService{
		log:        log.With("service", "FlashcardService"),
		flashcards: flashcards,
		questions:  questions,
		generator:  generator,
		now:        now,
	}
}

func (s *flashcardService) Create(dbc dbctx.Context, in CreateFlashcardInput) (*domain.Flashcard, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Front) == "" {
		return nil, apierr.Validation("missing_field", "missing required field: front")
	}
	if strings.TrimSpace(in.Back) == "" {
		return nil, apierr.Validation("missing_field", "missing required field: back")
	}
	card := domain.NewFlashcard(uid, in.Front, in.Back, in.Tags, s.now())
	if in.MediaAttachments != nil {
		card.MediaAttachments = in.MediaAttachments
	}
	card.UserNotes = in.UserNotes
	if err := s.flashcards.Create(dbc, card); err != nil {
		return nil, internalErr("flashcard_create_failed", fmt.Errorf("create flashcard: %w", err))
	}
	return card, nil
}

// owned loads a card and checks that the caller owns it.
func (s *flashcardService) owned(dbc dbctx.Context, id string) (*domain.Flashcard, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	card, err := s.flashcards.GetByID(dbc, id)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedFlashcard) {
			s.log.Error("malformed flashcard record", "flashcard_id", id, "error", err.Error())
		}
		return nil, internalErr("flashcard_read_failed", fmt.Errorf("get flashcard: %w", err))
	}
	if card == nil {
		return nil, apierr.NotFound("flashcard_not_found", "flashcard not found")
	}
	if card.UserID != uid {
		return nil, apierr.Forbidden("flashcard belongs to another user")
	}
	return card, nil
}

func (s *flashcardService) Get(dbc dbctx.Context, id string) (*domain.Flashcard, error) {
	return s.owned(dbc, id)
}

func (s *flashcardService) Update(dbc dbctx.Context, id string, patch FlashcardPatch) (*domain.Flashcard, error) {
	card, err := s.owned(dbc, id)
	if err != nil {
		return nil, err
	}
	if patch.Front != nil {
		card.Front = *patch.Front
	}
	if patch.Back != nil {
		card.Back = *patch.Back
	}
	if patch.Tags != nil {
		card.Tags = *patch.Tags
	}
	if patch.MediaAttachments != nil {
		card.MediaAttachments = *patch.MediaAttachments
	}
	if patch.UserNotes != nil {
		card.UserNotes = *patch.UserNotes
	}
	card.UpdatedAt = s.now()
	if err := s.flashcards.Update(dbc, card); err != nil {
		return nil, internalErr("flashcard_update_failed", fmt.Errorf("update flashcard: %w", err))
	}
	return card, nil
}

func (s *flashcardService) Delete(dbc dbctx.Context, id string) error {
	if _, err := s.owned(dbc, id); err != nil {
		return err
	}
	if err := s.flashcards.Delete(dbc, id); err != nil {
		return internalErr("flashcard_delete_failed", fmt.Errorf("delete flashcard: %w", err))
	}
	return nil
}

func (s *flashcardService) List(dbc dbctx.Context, filter string, limit int) ([]*domain.Flashcard, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	f := repos.FlashcardFilter(filter)
	if !f.Valid() {
		return nil, apierr.Validation("invalid_filter", "filter must be one of due, new, learning, review")
	}
	limit = defaultIfOutside(limit, defaultFlashcardLimit, 1, maxFlashcardLimit)
	cards, err := s.flashcards.ListByUser(dbc, uid, f, s.now(), limit)
	if err != nil {
		return nil, internalErr("flashcard_list_failed", fmt.Errorf("list flashcards: %w", err))
	}
	return cards, nil
}

func (s *flashcardService) Due(dbc dbctx.Context) ([]*domain.Flashcard, error) {
	return s.List(dbc, string(repos.FilterDue), defaultFlashcardLimit)
}

func (s *flashcardService) Stats(dbc dbctx.Context) (domain.FlashcardStats, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return domain.FlashcardStats{}, err
	}
	stats, err := s.flashcards.Stats(dbc, uid, s.now())
	if err != nil {
		return domain.FlashcardStats{}, internalErr("flashcard_stats_failed", fmt.Errorf("flashcard stats: %w", err))
	}
	return stats, nil
}

// Review grades a card and writes the new schedule. There is no version check, so of two
// concurrent reviews of one card the later write wins.
func (s *flashcardService) Review(dbc dbctx.Context, id string, quality int) (*domain.Flashcard, error) {
	if quality < srs.MinQuality || quality > srs.MaxQuality {
		return nil, apierr.Validation("invalid_quality", "quality must be an integer between 0 and 5")
	}
	card, err := s.owned(dbc, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, err := srs.Grade(card.Schedule, quality, now)
	if err != nil {
		return nil, apierr.Validation("invalid_quality", err.Error())
	}
	card.Schedule = next
	card.UpdatedAt = now
	if err := s.flashcards.Update(dbc, card); err != nil {
		return nil, internalErr("flashcard_update_failed", fmt.Errorf("save review: %w", err))
	}
	s.log.Debug("flashcard reviewed", "flashcard_id", id, "quality", quality, "interval", next.Interval)
	return card, nil
}

func (s *flashcardService) CreateFromQuestion(dbc dbctx.Context, questionID string) (*domain.Flashcard, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.questions.GetByID(dbc, questionID)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedQuestion) {
			return nil, apierr.Validation("invalid_question", "question does not have the expected structure")
		}
		return nil, internalErr("question_read_failed", fmt.Errorf("get question: %w", err))
	}
	if q == nil {
		return nil, apierr.NotFound("question_not_found", "question not found")
	}
	content, err := s.generator.FromQuestion(dbc.Ctx, q)
	if err != nil {
		return nil, err
	}
	card := domain.NewFlashcard(uid, content.Front, content.Back, content.Tags, s.now())
	card.QuestionID = q.ID
	if err := s.flashcards.Create(dbc, card); err != nil {
		return nil, internalErr("flashcard_create_failed", fmt.Errorf("create flashcard: %w", err))
	}
	return card, nil
}
