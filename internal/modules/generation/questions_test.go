package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/cache"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai/openaitest"
)

const threeQuestions = `Aqui estão as questões solicitadas:
[
  {"text": "Q1", "options": [{"id": "a", "text": "x"}, {"id": "b", "text": "y"}], "correctAnswer": "a",
   "explanation": "e1", "subject": "Ciências da Natureza", "topic": "photosynthesis", "difficulty": "hard",
   "possibleQuestions": ["p1?"]},
  {"text": "Q2", "options": [{"id": "a", "text": "x"}], "correctAnswer": "a", "explanation": "e2",
   "subject": "Biologia", "difficulty": "extreme"},
  {"text": "Q3", "options": [{"id": "a", "text": "x"}], "correctAnswer": "a", "explanation": "e3"}
]
Espero que ajude!`

func TestCacheKey(t *testing.T) {
	cases := []struct {
		sel  ContentSelection
		n    int
		want string
	}{
		{ContentSelection{Method: MethodSubject, Subject: SubjectMathematics}, 10, "subject:mathematics:count:10"},
		{ContentSelection{Method: MethodTopic, CustomTopic: "photosynthesis"}, 3, "topic:photosynthesis:count:3"},
		{ContentSelection{Method: "other"}, 1, "method:other:count:1"},
	}
	for _, c := range cases {
		if got := CacheKey(c.sel, c.n); got != c.want {
			t.Fatalf("CacheKey(%+v,%d) = %q want %q", c.sel, c.n, got, c.want)
		}
	}
}

func TestParseQuestionDrafts_Defaults(t *testing.T) {
	drafts, err := ParseQuestionDrafts(threeQuestions)
	if err != nil {
		t.Fatalf("ParseQuestionDrafts: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}
	if drafts[0].Subject != SubjectNaturalSciences || drafts[0].Difficulty != domain.DifficultyHard {
		t.Fatalf("draft 0: %+v", drafts[0])
	}
	if drafts[1].Subject != "biologia" || drafts[1].Difficulty != domain.DifficultyMedium {
		t.Fatalf("draft 1: %+v", drafts[1])
	}
	if drafts[2].Topic != "" || drafts[2].Difficulty != domain.DifficultyMedium || drafts[2].PossibleQuestions == nil {
		t.Fatalf("draft 2: %+v", drafts[2])
	}
}

func TestParseQuestionDrafts_RejectsIncompleteItems(t *testing.T) {
	for _, text := range []string{
		`[{"text": "", "options": []}]`,
		`[{"text": "ok", "options": [{"id": "", "text": "x"}]}]`,
	} {
		if _, err := ParseQuestionDrafts(text); !errors.Is(err, apierr.ErrGenerationParse) {
			t.Fatalf("expected parse error for %s, got %v", text, err)
		}
	}
}

func TestQuestionGenerator_SecondRequestServedFromCache(t *testing.T) {
	llm := &openaitest.Fake{Replies: []string{threeQuestions}}
	gen := NewQuestionGenerator(logger.Nop(), llm, cache.NewMemory(time.Hour, 16))
	sel := ContentSelection{Method: MethodTopic, CustomTopic: "photosynthesis"}

	first, err := gen.Generate(context.Background(), sel, 3)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	second, err := gen.Generate(context.Background(), sel, 3)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if llm.Calls() != 1 {
		t.Fatalf("expected 1 LLM call, got %d", llm.Calls())
	}
	if len(first) != 3 || len(second) != 3 || second[0].Text != "Q1" {
		t.Fatalf("unexpected drafts: %d %d", len(first), len(second))
	}

	if _, err := gen.Generate(context.Background(), sel, 4); err != nil {
		t.Fatalf("different count: %v", err)
	}
	if llm.Calls() != 2 {
		t.Fatalf("different count must miss the cache, calls=%d", llm.Calls())
	}
}

func TestQuestionGenerator_ExpiredEntryRegenerates(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	llm := &openaitest.Fake{Replies: []string{threeQuestions}}
	gen := NewQuestionGenerator(logger.Nop(), llm, cache.NewMemory(time.Hour, 16, cache.WithClock(clock)))
	sel := ContentSelection{Method: MethodSubject, Subject: SubjectMathematics}

	if _, err := gen.Generate(context.Background(), sel, 3); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	now = now.Add(time.Hour)
	if _, err := gen.Generate(context.Background(), sel, 3); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if llm.Calls() != 2 {
		t.Fatalf("expected regeneration after ttl, calls=%d", llm.Calls())
	}
}

func TestQuestionGenerator_ConcurrentMissesShareOneCall(t *testing.T) {
	gate := make(chan struct{})
	llm := &openaitest.Fake{Replies: []string{threeQuestions}, Gate: gate}
	gen := NewQuestionGenerator(logger.Nop(), llm, cache.NewMemory(time.Hour, 16))
	sel := ContentSelection{Method: MethodTopic, CustomTopic: "photosynthesis"}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drafts, err := gen.Generate(context.Background(), sel, 3)
			if err == nil && len(drafts) != 3 {
				err = errors.New("short result")
			}
			errs <- err
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for llm.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}
	if llm.Calls() != 1 {
		t.Fatalf("expected one LLM call, got %d", llm.Calls())
	}
}

func TestQuestionGenerator_ParseFailureIsNotCached(t *testing.T) {
	llm := &openaitest.Fake{Replies: []string{"desculpe, não consigo", threeQuestions}}
	c := cache.NewMemory(time.Hour, 16)
	gen := NewQuestionGenerator(logger.Nop(), llm, c)
	sel := ContentSelection{Method: MethodSubject, Subject: SubjectLanguages}

	_, err := gen.Generate(context.Background(), sel, 3)
	if !errors.Is(err, apierr.ErrGenerationParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed generation must not be cached")
	}
	if _, err := gen.Generate(context.Background(), sel, 3); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestQuestionGenerator_Errors(t *testing.T) {
	llm := &openaitest.Fake{Err: errors.New("upstream down")}
	gen := NewQuestionGenerator(logger.Nop(), llm, nil)
	_, err := gen.Generate(context.Background(), ContentSelection{Method: MethodSubject}, 2)
	if !errors.Is(err, apierr.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := gen.Generate(context.Background(), ContentSelection{Method: MethodSubject}, 0); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("expected validation error for zero count, got %v", err)
	}
	if _, err := gen.Generate(context.Background(), ContentSelection{Method: "nope"}, 2); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("expected validation error for bad method, got %v", err)
	}
}

func TestMaterialize_FreshIDsPerCall(t *testing.T) {
	drafts, _ := ParseQuestionDrafts(threeQuestions)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Materialize(drafts, "u1", now)
	b := Materialize(drafts, "u2", now)
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("unexpected lengths")
	}
	if a[0].ID == b[0].ID || a[0].UserID != "u1" || b[0].UserID != "u2" {
		t.Fatalf("questions must be per-user copies: %s %s", a[0].ID, b[0].ID)
	}
	a[0].Options[0].Text = "mutated"
	if b[0].Options[0].Text == "mutated" {
		t.Fatalf("options slice shared between copies")
	}
}
