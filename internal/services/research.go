package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/enemia-backend/internal/data/repos"
	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/modules/research"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

const defaultResearchLimit = 50

// ResearchRunner is the part of the research pipeline the service depends on.
type ResearchRunner interface {
	Run(ctx context.Context, userID, topic string) (*research.Result, error)
}

type ResearchService interface {
	Create(dbc dbctx.Context, topic string) (*domain.Research, error)
	List(dbc dbctx.Context, limit int) ([]*domain.Research, error)
	Get(dbc dbctx.Context, id string) (*domain.Research, error)
}

type researchService struct {
	log    *logger.Logger
	repo   repos.ResearchRepo
	runner ResearchRunner
	now    Clock
}

func NewResearchService(log *logger.Logger, repo repos.ResearchRepo, runner ResearchRunner, now Clock) ResearchService {
	if now == nil {
		now = SystemClock
	}
	return &researchService{
		log:    log.With("service", "ResearchService"),
		repo:   repo,
		runner: runner,
		now:    now,
	}
}

// Create runs the whole pipeline for topic and stores the outcome. Nothing is stored
// when any stage or the final parse fails.
func (s *researchService) Create(dbc dbctx.Context, topic string) (*domain.Research, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apierr.Validation("missing_field", "missing required field: topic")
	}
	res, err := s.runner.Run(dbc.Ctx, uid, topic)
	if err != nil {
		s.log.Warn("research pipeline failed", "topic", topic, "error", err.Error())
		return nil, internalErr("research_failed", err)
	}
	row := &domain.Research{
		ID:         domain.NewID(domain.PrefixResearch),
		UserID:     uid,
		Topic:      topic,
		Content:    res.Content,
		Flashcards: res.Flashcards,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(dbc, row); err != nil {
		return nil, internalErr("research_save_failed", fmt.Errorf("save research: %w", err))
	}
	return row, nil
}

func (s *researchService) List(dbc dbctx.Context, limit int) ([]*domain.Research, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultResearchLimit
	}
	rows, err := s.repo.ListByUser(dbc, uid, limit)
	if err != nil {
		return nil, internalErr("research_list_failed", fmt.Errorf("list research: %w", err))
	}
	return rows, nil
}

func (s *researchService) Get(dbc dbctx.Context, id string) (*domain.Research, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return nil, internalErr("research_read_failed", fmt.Errorf("get research: %w", err))
	}
	if row == nil {
		return nil, apierr.NotFound("research_not_found", "research not found")
	}
	if row.UserID != uid {
		return nil, apierr.Forbidden("research belongs to another user")
	}
	return row, nil
}
