package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/cache"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai"
)

const (
	MethodSubject = "subject"
	MethodTopic   = "topic"
)

// ContentSelection scopes a question-generation request.
type ContentSelection struct {
	Method      string `json:"method"`
	Subject     string `json:"subject,omitempty"`
	CustomTopic string `json:"customTopic,omitempty"`
}

// QuestionDraft is a generated question before it is assigned an id and owner.
type QuestionDraft struct {
	Text              string          `json:"text"`
	Options           []domain.Option `json:"options"`
	CorrectAnswer     string          `json:"correctAnswer"`
	Explanation       string          `json:"explanation"`
	Subject           string          `json:"subject"`
	Topic             string          `json:"topic"`
	Difficulty        string          `json:"difficulty"`
	PossibleQuestions []string        `json:"possibleQuestions"`
}

// CacheKey derives the generation cache key for a selection and count.
func CacheKey(sel ContentSelection, count int) string {
	n := strconv.Itoa(count)
	switch sel.Method {
	case MethodSubject:
		return "subject:" + sel.Subject + ":count:" + n
	case MethodTopic:
		return "topic:" + sel.CustomTopic + ":count:" + n
	default:
		return "method:" + sel.Method + ":count:" + n
	}
}

// QuestionPrompt renders the user prompt for a selection. An empty subject means all subjects.
func QuestionPrompt(sel ContentSelection, count int) (string, error) {
	switch sel.Method {
	case MethodSubject:
		subject := sel.Subject
		if subject == "" {
			subject = SubjectAll
		}
		_, user, err := Render(PromptQuestionsBySubject, Input{Count: count, SubjectName: SubjectDisplayName(subject)})
		return user, err
	case MethodTopic:
		_, user, err := Render(PromptQuestionsByTopic, Input{Count: count, Topic: sel.CustomTopic})
		return user, err
	default:
		return "", apierr.Validation("invalid_content_selection", "invalid content selection method")
	}
}

// QuestionGenerator produces question drafts through the LLM, fronted by a TTL cache.
// Identical concurrent misses share one LLM call.
type QuestionGenerator struct {
	log   *logger.Logger
	llm   openai.Client
	cache cache.Cache
	group singleflight.Group
}

func NewQuestionGenerator(baseLog *logger.Logger, llm openai.Client, c cache.Cache) *QuestionGenerator {
	return &QuestionGenerator{
		log:   baseLog.With("service", "QuestionGenerator"),
		llm:   llm,
		cache: c,
	}
}

// Generate returns drafts for sel, serving from cache when a fresh entry exists.
func (g *QuestionGenerator) Generate(ctx context.Context, sel ContentSelection, count int) ([]QuestionDraft, error) {
	if count <= 0 {
		return nil, apierr.Validation("invalid_question_count", "questionCount must be a positive integer")
	}
	key := CacheKey(sel, count)
	if drafts, ok := g.cached(ctx, key); ok {
		g.log.Debug("question cache hit", "key", key)
		return drafts, nil
	}
	v, err, shared := g.group.Do(key, func() (any, error) {
		if drafts, ok := g.cached(ctx, key); ok {
			return drafts, nil
		}
		drafts, err := g.generate(ctx, sel, count)
		if err != nil {
			return nil, err
		}
		if g.cache != nil && len(drafts) > 0 {
			if raw, err := json.Marshal(drafts); err == nil {
				if err := g.cache.Set(ctx, key, raw); err != nil {
					g.log.Warn("question cache write failed", "key", key, "error", err.Error())
				}
			}
		}
		return drafts, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		g.log.Debug("question generation coalesced", "key", key)
	}
	return v.([]QuestionDraft), nil
}

func (g *QuestionGenerator) cached(ctx context.Context, key string) ([]QuestionDraft, bool) {
	if g.cache == nil {
		return nil, false
	}
	raw, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.log.Warn("question cache read failed", "key", key, "error", err.Error())
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var drafts []QuestionDraft
	if err := json.Unmarshal(raw, &drafts); err != nil {
		g.log.Warn("question cache entry unreadable", "key", key, "error", err.Error())
		return nil, false
	}
	return drafts, true
}

func (g *QuestionGenerator) generate(ctx context.Context, sel ContentSelection, count int) ([]QuestionDraft, error) {
	ctx, span := otel.Tracer("enemia/generation").Start(ctx, "generation.questions")
	defer span.End()
	span.SetAttributes(
		attribute.String("generation.method", sel.Method),
		attribute.Int("generation.count", count),
	)

	prompt, err := QuestionPrompt(sel, count)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	text, err := g.llm.GenerateText(ctx, "", prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apierr.Unavailable("generation_unavailable", fmt.Errorf("generate questions: %w", err))
	}
	drafts, err := ParseQuestionDrafts(text)
	if err != nil {
		g.log.Warn("question output unparseable", "method", sel.Method, "bytes", len(text), "error", err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse")
		return nil, err
	}
	g.log.Info("questions generated", "method", sel.Method, "count", len(drafts), "duration_ms", time.Since(start).Milliseconds())
	return drafts, nil
}

// ParseQuestionDrafts extracts the question array from model text and applies defaults.
func ParseQuestionDrafts(text string) ([]QuestionDraft, error) {
	drafts, err := ExtractArray[QuestionDraft](text)
	if err != nil {
		return nil, err
	}
	for i := range drafts {
		d := &drafts[i]
		if strings.TrimSpace(d.Text) == "" {
			return nil, apierr.GenerationParse(fmt.Errorf("question %d: missing text", i))
		}
		for _, o := range d.Options {
			if strings.TrimSpace(o.ID) == "" {
				return nil, apierr.GenerationParse(fmt.Errorf("question %d: option without id", i))
			}
		}
		d.Subject = NormalizeSubject(d.Subject)
		switch d.Difficulty {
		case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
		default:
			d.Difficulty = domain.DifficultyMedium
		}
		if d.Options == nil {
			d.Options = []domain.Option{}
		}
		if d.PossibleQuestions == nil {
			d.PossibleQuestions = []string{}
		}
	}
	return drafts, nil
}

// Materialize turns drafts into unsaved questions owned by userID, each with a fresh id.
func Materialize(drafts []QuestionDraft, userID string, now time.Time) []*domain.Question {
	out := make([]*domain.Question, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, &domain.Question{
			ID:                domain.NewID(domain.PrefixQuestion),
			Text:              d.Text,
			Options:           append([]domain.Option{}, d.Options...),
			CorrectAnswer:     d.CorrectAnswer,
			Explanation:       d.Explanation,
			Subject:           d.Subject,
			UserID:            userID,
			Topic:             d.Topic,
			Difficulty:        d.Difficulty,
			Ratings:           []domain.Rating{},
			PossibleQuestions: append([]string{}, d.PossibleQuestions...),
			CreatedAt:         now,
		})
	}
	return out
}
