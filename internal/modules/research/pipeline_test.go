package research

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai"
	"github.com/yungbote/enemia-backend/internal/platform/openai/openaitest"
)

// scriptedSessions answers each app with a fixed list of events.
type scriptedSessions struct {
	mu       sync.Mutex
	replies  map[string][]Event
	fail     map[string]error
	apps     map[string]string
	created  []string
	deleted  []string
	messages []string
}

func newScripted() *scriptedSessions {
	return &scriptedSessions{replies: map[string][]Event{}, fail: map[string]error{}, apps: map[string]string{}}
}

func (s *scriptedSessions) CreateSession(ctx context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, sessionID)
	s.apps[sessionID] = appName
	return nil
}

func (s *scriptedSessions) Run(ctx context.Context, userID, sessionID, message string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	app := s.apps[sessionID]
	if err := s.fail[app]; err != nil {
		return nil, err
	}
	return s.replies[app], nil
}

func (s *scriptedSessions) DeleteSession(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, sessionID)
	return nil
}

func final(texts ...string) Event {
	ev := Event{Final: true}
	for _, t := range texts {
		ev.Parts = append(ev.Parts, Part{Text: t})
	}
	return ev
}

const fencedCards = "Seguem os flashcards:\n```json\n[{\"front\": \"O que é clorofila?\", \"back\": \"Pigmento verde.\"}, {\"front\": \"Onde ocorre a fotossíntese?\", \"back\": \"Nos cloroplastos.\"}]\n```"

func newRunner(t *testing.T, s SessionService) *Runner {
	t.Helper()
	stages, err := DefaultStages()
	if err != nil {
		t.Fatalf("DefaultStages: %v", err)
	}
	return NewRunner(logger.Nop(), s, stages)
}

func TestRunner_ThreadsStageOutputs(t *testing.T) {
	s := newScripted()
	s.replies["search_agent"] = []Event{{Final: false, Parts: []Part{{Text: "buscando..."}}}, final("fatos", "fontes")}
	s.replies["content_creation_agent"] = []Event{final("<h1>Fotossíntese</h1>")}
	s.replies["flashcard_creation_agent"] = []Event{final(fencedCards)}

	res, err := newRunner(t, s).Run(context.Background(), "u1", "fotossíntese")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Search != "fatos\nfontes\n" {
		t.Fatalf("search output: %q", res.Search)
	}
	if res.Content != "<h1>Fotossíntese</h1>\n" {
		t.Fatalf("content output: %q", res.Content)
	}
	if len(res.Flashcards) != 2 || res.Flashcards[1].Back != "Nos cloroplastos." {
		t.Fatalf("flashcards: %+v", res.Flashcards)
	}

	wantSessions := []string{"u1_search_fotossíntese", "u1_content_fotossíntese", "u1_flashcards_fotossíntese"}
	for i, id := range wantSessions {
		if s.created[i] != id || s.deleted[i] != id {
			t.Fatalf("session %d: created=%v deleted=%v", i, s.created, s.deleted)
		}
	}
	if !strings.Contains(s.messages[0], "Pesquise o seguinte tópico detalhadamente: fotossíntese") {
		t.Fatalf("search prompt: %q", s.messages[0])
	}
	if !strings.Contains(s.messages[1], "Informações da Pesquisa:\nfatos\nfontes") {
		t.Fatalf("content prompt does not carry search output: %q", s.messages[1])
	}
	if !strings.Contains(s.messages[2], "Conteúdo Educacional:\n<h1>Fotossíntese</h1>") {
		t.Fatalf("flashcard prompt does not carry content: %q", s.messages[2])
	}
}

func TestRunner_MissingFenceIsParseError(t *testing.T) {
	s := newScripted()
	s.replies["search_agent"] = []Event{final("fatos")}
	s.replies["content_creation_agent"] = []Event{final("<p>conteúdo</p>")}
	s.replies["flashcard_creation_agent"] = []Event{final(`[{"front": "a", "back": "b"}]`)}

	res, err := newRunner(t, s).Run(context.Background(), "u1", "óptica")
	if res != nil || !errors.Is(err, apierr.ErrGenerationParse) {
		t.Fatalf("expected parse error and no result, got %v %v", res, err)
	}
	if len(s.deleted) != 3 {
		t.Fatalf("every session must be discarded, deleted=%v", s.deleted)
	}
}

func TestRunner_StageFailureAbortsRemainingStages(t *testing.T) {
	s := newScripted()
	s.replies["search_agent"] = []Event{final("fatos")}
	s.fail["content_creation_agent"] = errors.New("model overloaded")

	_, err := newRunner(t, s).Run(context.Background(), "u1", "genética")
	if !errors.Is(err, apierr.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if len(s.created) != 2 {
		t.Fatalf("flashcard stage must not start, created=%v", s.created)
	}
}

func TestRunner_EmptyStageOutputFails(t *testing.T) {
	s := newScripted()
	s.replies["search_agent"] = []Event{{Final: false, Parts: []Part{{Text: "só ferramenta"}}}}

	_, err := newRunner(t, s).Run(context.Background(), "u1", "genética")
	if !errors.Is(err, apierr.ErrGenerationParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if len(s.created) != 1 {
		t.Fatalf("pipeline must stop after first stage, created=%v", s.created)
	}
}

func TestFinalText(t *testing.T) {
	events := []Event{final("a"), {Parts: []Part{{Text: "ignored"}}}, final("b", "c")}
	if got := FinalText(events); got != "a\nb\nc\n" {
		t.Fatalf("FinalText = %q", got)
	}
	if FinalText(nil) != "" {
		t.Fatalf("empty events must yield empty text")
	}
}

func TestLLMSessionService_EndToEnd(t *testing.T) {
	llm := &openaitest.Fake{Turn: func(req openai.TurnRequest) (openai.TurnResult, error) {
		switch {
		case req.WebSearch:
			return openai.TurnResult{Items: []openai.OutputItem{
				{Type: "message", Role: "assistant", Texts: []string{"vou pesquisar"}},
				{Type: "web_search_call", Status: "completed"},
				{Type: "message", Role: "assistant", Texts: []string{"fatos"}},
			}}, nil
		case strings.Contains(req.Input, "Crie 5-10 flashcards"):
			return openai.TurnResult{Items: []openai.OutputItem{{Type: "message", Role: "assistant", Texts: []string{fencedCards}}}}, nil
		default:
			return openai.TurnResult{Items: []openai.OutputItem{{Type: "message", Role: "assistant", Texts: []string{"<h1>x</h1>"}}}}, nil
		}
	}}
	r, err := NewDefaultRunner(logger.Nop(), llm)
	if err != nil {
		t.Fatalf("NewDefaultRunner: %v", err)
	}
	res, err := r.Run(context.Background(), "u9", "ecologia")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Search != "fatos\n" {
		t.Fatalf("pre-search chatter must not be final: %q", res.Search)
	}
	if len(res.Flashcards) != 2 {
		t.Fatalf("flashcards: %+v", res.Flashcards)
	}
	if llm.Conversations() != 3 || len(llm.Deleted()) != 3 {
		t.Fatalf("conversations=%d deleted=%v", llm.Conversations(), llm.Deleted())
	}
	turns := llm.Turns()
	if !turns[0].WebSearch || turns[1].WebSearch || turns[2].WebSearch {
		t.Fatalf("only the search stage may use web search")
	}
	if !strings.Contains(turns[0].Instructions, "Assistente de Pesquisa") {
		t.Fatalf("search instruction missing: %q", turns[0].Instructions)
	}
}

func TestLLMSessionService_Lifecycle(t *testing.T) {
	llm := &openaitest.Fake{}
	svc := NewLLMSessionService(logger.Nop(), llm, Agent{Name: "a", Instruction: "seja breve"})
	ctx := context.Background()

	if err := svc.CreateSession(ctx, "unknown", "u", "s"); !errors.Is(err, ErrUnknownApp) {
		t.Fatalf("expected unknown app, got %v", err)
	}
	if err := svc.CreateSession(ctx, "a", "u", "s"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := svc.CreateSession(ctx, "a", "u", "s"); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if _, err := svc.Run(ctx, "u", "s", "olá"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if evs := svc.Events("u", "s"); len(evs) != 1 || evs[0].Author != "user" {
		t.Fatalf("event log: %+v", evs)
	}
	if err := svc.DeleteSession(ctx, "u", "s"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if svc.Len() != 0 {
		t.Fatalf("session not discarded")
	}
	if _, err := svc.Run(ctx, "u", "s", "de novo"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRunner_StageFailureLogsSessionHistory(t *testing.T) {
	llm := &openaitest.Fake{Turn: func(req openai.TurnRequest) (openai.TurnResult, error) {
		return openai.TurnResult{Items: []openai.OutputItem{
			{Type: "message", Role: "assistant", Texts: []string{"vou pesquisar"}},
			{Type: "web_search_call", Status: "incomplete"},
		}}, nil
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	r, err := NewDefaultRunner(&logger.Logger{SugaredLogger: zap.New(core).Sugar()}, llm)
	if err != nil {
		t.Fatalf("NewDefaultRunner: %v", err)
	}

	if _, err := r.Run(context.Background(), "u3", "genética"); !errors.Is(err, apierr.ErrGenerationParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	failed := logs.FilterMessage("research stage failed").All()
	if len(failed) != 1 {
		t.Fatalf("expected one failure entry, got %d", len(failed))
	}
	fields := failed[0].ContextMap()
	if fields["stage"] != StageSearch || fields["session_id"] != SessionID("u3", StageSearch, "genética") {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if fields["events"] != int64(3) || fields["last_event_author"] != "search_agent" || fields["last_event_final"] != false {
		t.Fatalf("session history not logged: %v", fields)
	}
	if len(llm.Deleted()) != 1 {
		t.Fatalf("failed stage session must still be deleted: %v", llm.Deleted())
	}
}

func TestRunner_ConcurrentDuplicateIsConflict(t *testing.T) {
	release := make(chan struct{})
	llm := &openaitest.Fake{Turn: func(req openai.TurnRequest) (openai.TurnResult, error) {
		<-release
		return openai.TurnResult{Items: []openai.OutputItem{{Type: "message", Role: "assistant", Texts: []string{"x"}}}}, nil
	}}
	stages, _ := DefaultStages()
	sessions := NewLLMSessionService(logger.Nop(), llm, Agents(stages)...)
	r := NewRunner(logger.Nop(), sessions, stages)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "u1", "t")
		done <- err
	}()
	for sessions.Len() == 0 {
		time.Sleep(time.Millisecond)
	}
	_, err := r.Run(context.Background(), "u1", "t")
	if !errors.Is(err, apierr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	close(release)
	<-done
}
