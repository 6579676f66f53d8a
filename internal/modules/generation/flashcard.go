package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai"
)

// CardContent is the front/back/tags triple derived from a question.
type CardContent struct {
	Front    string   `json:"front"`
	Back     string   `json:"back"`
	Tags     []string `json:"tags"`
	Fallback bool     `json:"-"`
}

// FlashcardPrompt renders the flashcard-from-question prompt.
func FlashcardPrompt(q *domain.Question) (string, error) {
	_, user, err := Render(PromptFlashcardFromQuestion, Input{
		QuestionText:  q.Text,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	})
	return user, err
}

// ParseCardContent decodes a single card from model text. If no object can be located the
// result is a generation parse error; if one is located but does not decode, the card is
// rebuilt from the question itself.
func ParseCardContent(text string, q *domain.Question) (CardContent, error) {
	raw, err := SliceObject(text)
	if err != nil {
		return CardContent{}, apierr.GenerationParse(err)
	}
	var c CardContent
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return FallbackCard(q), nil
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return c, nil
}

// FallbackCard builds a deterministic card from the question text and explanation.
func FallbackCard(q *domain.Question) CardContent {
	tags := []string{}
	if q.Subject != "" || q.Topic != "" {
		tags = []string{q.Subject, q.Topic}
	}
	return CardContent{
		Front:    fmt.Sprintf("O que é o conceito principal abordado nesta questão: '%s...'?", truncateRunes(q.Text, 100)),
		Back:     fmt.Sprintf("Explicação: %s...", truncateRunes(q.Explanation, 200)),
		Tags:     tags,
		Fallback: true,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FlashcardGenerator asks the LLM for one card per question. It never caches.
type FlashcardGenerator struct {
	log *logger.Logger
	llm openai.Client
}

func NewFlashcardGenerator(baseLog *logger.Logger, llm openai.Client) *FlashcardGenerator {
	return &FlashcardGenerator{log: baseLog.With("service", "FlashcardGenerator"), llm: llm}
}

func (g *FlashcardGenerator) FromQuestion(ctx context.Context, q *domain.Question) (CardContent, error) {
	ctx, span := otel.Tracer("enemia/generation").Start(ctx, "generation.flashcard")
	defer span.End()
	span.SetAttributes(attribute.String("question.id", q.ID))

	prompt, err := FlashcardPrompt(q)
	if err != nil {
		return CardContent{}, err
	}
	text, err := g.llm.GenerateText(ctx, "", prompt)
	if err != nil {
		span.RecordError(err)
		return CardContent{}, apierr.Unavailable("generation_unavailable", fmt.Errorf("generate flashcard: %w", err))
	}
	c, err := ParseCardContent(text, q)
	if err != nil {
		g.log.Warn("flashcard output has no json object", "question_id", q.ID, "bytes", len(text))
		span.RecordError(err)
		return CardContent{}, err
	}
	if c.Fallback {
		g.log.Warn("flashcard json unparseable, using fallback card", "question_id", q.ID)
		span.SetAttributes(attribute.Bool("generation.fallback", true))
	}
	return c, nil
}
