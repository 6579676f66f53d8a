package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yungbote/enemia-backend/internal/data/repos"
	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

const (
	DefaultErrorThreshold  = 3.0
	defaultErrorQuestions  = 10
	maxErrorQuestionsLimit = 50
)

// ErrorQuestion is a question the user rated poorly, with its mean rating.
type ErrorQuestion struct {
	Question      *domain.Question `json:"question"`
	AverageRating float64          `json:"averageRating"`
}

type QuestionService interface {
	Rate(dbc dbctx.Context, questionID string, rating int) (*domain.Question, error)
	ErrorQuestions(dbc dbctx.Context, threshold float64, limit int) ([]ErrorQuestion, error)
}

type questionService struct {
	log       *logger.Logger
	questions repos.QuestionRepo
	now       Clock
}

func NewQuestionService(log *logger.Logger, questions repos.QuestionRepo, now Clock) QuestionService {
	if now == nil {
		now = SystemClock
	}
	return &questionService{
		log:       log.With("service", "QuestionService"),
		questions: questions,
		now:       now,
	}
}

// Rate records the caller's 1..5 rating, replacing any earlier rating by the same user.
func (s *questionService) Rate(dbc dbctx.Context, questionID string, rating int) (*domain.Question, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, apierr.Validation("invalid_rating", "rating must be an integer between 1 and 5")
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
	q.SetRating(uid, rating, s.now())
	if err := s.questions.Update(dbc, q); err != nil {
		return nil, internalErr("question_update_failed", fmt.Errorf("save rating: %w", err))
	}
	return q, nil
}

// ErrorQuestions lists the caller's questions whose average rating is in (0, threshold],
// lowest first. Out-of-range arguments fall back to their defaults.
func (s *questionService) ErrorQuestions(dbc dbctx.Context, threshold float64, limit int) ([]ErrorQuestion, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	if threshold < 1 || threshold > 5 {
		threshold = DefaultErrorThreshold
	}
	limit = defaultIfOutside(limit, defaultErrorQuestions, 1, maxErrorQuestionsLimit)

	rows, err := s.questions.ListByUser(dbc, uid)
	if err != nil {
		return nil, internalErr("question_list_failed", fmt.Errorf("list questions: %w", err))
	}
	out := make([]ErrorQuestion, 0, len(rows))
	for _, q := range rows {
		avg := q.AverageRating()
		if avg > 0 && avg <= threshold {
			out = append(out, ErrorQuestion{Question: q, AverageRating: avg})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AverageRating < out[j].AverageRating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
