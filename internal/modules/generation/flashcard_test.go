package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai/openaitest"
)

func sampleQuestion() *domain.Question {
	return &domain.Question{
		ID:            "q_1",
		Text:          strings.Repeat("á", 150),
		CorrectAnswer: "c",
		Explanation:   strings.Repeat("e", 250),
		Subject:       "natural_sciences",
		Topic:         "ecologia",
	}
}

func TestParseCardContent_Object(t *testing.T) {
	c, err := ParseCardContent("Resposta:\n{\"front\": \"F\", \"back\": \"B\", \"tags\": [\"t\"]}\n", sampleQuestion())
	if err != nil {
		t.Fatalf("ParseCardContent: %v", err)
	}
	if c.Fallback || c.Front != "F" || c.Back != "B" || len(c.Tags) != 1 {
		t.Fatalf("unexpected card: %+v", c)
	}
}

func TestParseCardContent_FallbackOnDecodeFailure(t *testing.T) {
	q := sampleQuestion()
	c, err := ParseCardContent("{front: sem aspas}", q)
	if err != nil {
		t.Fatalf("decode failure must not error: %v", err)
	}
	if !c.Fallback {
		t.Fatalf("expected fallback card")
	}
	wantFront := "O que é o conceito principal abordado nesta questão: '" + strings.Repeat("á", 100) + "...'?"
	if c.Front != wantFront {
		t.Fatalf("front: %q", c.Front)
	}
	if c.Back != "Explicação: "+strings.Repeat("e", 200)+"..." {
		t.Fatalf("back: %q", c.Back)
	}
	if len(c.Tags) != 2 || c.Tags[0] != "natural_sciences" || c.Tags[1] != "ecologia" {
		t.Fatalf("tags: %v", c.Tags)
	}
	again, _ := ParseCardContent("{front: sem aspas}", q)
	if again.Front != c.Front || again.Back != c.Back {
		t.Fatalf("fallback is not deterministic")
	}
}

func TestParseCardContent_InvertedBracesFallBack(t *testing.T) {
	c, err := ParseCardContent("} text {", sampleQuestion())
	if err != nil {
		t.Fatalf("inverted braces must not error: %v", err)
	}
	if !c.Fallback || len(c.Tags) != 2 {
		t.Fatalf("expected fallback card, got %+v", c)
	}
}

func TestFallbackCard_NoTagsWithoutSubjectOrTopic(t *testing.T) {
	c := FallbackCard(&domain.Question{Text: "curta", Explanation: "x"})
	if len(c.Tags) != 0 || c.Front != "O que é o conceito principal abordado nesta questão: 'curta...'?" {
		t.Fatalf("unexpected: %+v", c)
	}
}

func TestParseCardContent_NoObjectIsHardError(t *testing.T) {
	_, err := ParseCardContent("não sei responder", sampleQuestion())
	if !errors.Is(err, apierr.ErrGenerationParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestFlashcardGenerator_FromQuestion(t *testing.T) {
	llm := &openaitest.Fake{Replies: []string{"```json\n{\"front\": \"F\", \"back\": \"B\"}\n```"}}
	gen := NewFlashcardGenerator(logger.Nop(), llm)
	c, err := gen.FromQuestion(context.Background(), sampleQuestion())
	if err != nil {
		t.Fatalf("FromQuestion: %v", err)
	}
	if c.Front != "F" || c.Tags == nil {
		t.Fatalf("unexpected: %+v", c)
	}
	if !strings.Contains(llm.Prompts()[0], "Resposta correta: c") {
		t.Fatalf("prompt missing answer")
	}
}
