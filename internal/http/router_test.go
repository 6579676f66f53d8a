package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apphttp "github.com/yungbote/enemia-backend/internal/http"
	httpH "github.com/yungbote/enemia-backend/internal/http/handlers"
	httpMW "github.com/yungbote/enemia-backend/internal/http/middleware"
	"github.com/yungbote/enemia-backend/internal/data/repos"
	"github.com/yungbote/enemia-backend/internal/data/repos/testutil"
	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/modules/generation"
	"github.com/yungbote/enemia-backend/internal/modules/research"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/cache"
	"github.com/yungbote/enemia-backend/internal/platform/openai/openaitest"
	"github.com/yungbote/enemia-backend/internal/services"
)

type stubRunner struct {
	result *research.Result
	err    error
}

func (s *stubRunner) Run(ctx context.Context, userID, topic string) (*research.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	out.Topic = topic
	return &out, nil
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	llm    *openaitest.Fake
	runner *stubRunner
	tokens map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	db := testutil.DB(t)
	rs := repos.New(db, log, 1)
	llm := &openaitest.Fake{}
	runner := &stubRunner{}
	auth := services.NewAuthService(log, "0123456789abcdef0123", "enemia", "")

	flashcards := services.NewFlashcardService(log, rs.Flashcards, rs.Questions, generation.NewFlashcardGenerator(log, llm), services.SystemClock)
	questions := services.NewQuestionService(log, rs.Questions, services.SystemClock)
	chat := services.NewChatService(log, rs.Chats, rs.Questions, llm, services.SystemClock)
	exams := services.NewExamService(log, rs.Exams, rs.Questions, generation.NewQuestionGenerator(log, llm, cache.NewMemory(time.Hour, 16)), services.SystemClock)
	res := services.NewResearchService(log, rs.Research, runner, services.SystemClock)

	router := apphttp.NewRouter(apphttp.RouterConfig{
		Log:              log,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, auth),
		FlashcardHandler: httpH.NewFlashcardHandler(flashcards),
		QuestionHandler:  httpH.NewQuestionHandler(questions),
		ChatHandler:      httpH.NewChatHandler(chat),
		ExamHandler:      httpH.NewExamHandler(exams),
		ResearchHandler:  httpH.NewResearchHandler(res),
		DocsHandler:      httpH.NewDocsHandler(),
		HealthHandler:    httpH.NewHealthHandler(nil),
	})

	h := &harness{t: t, router: router, db: db, llm: llm, runner: runner, tokens: map[string]string{}}
	for _, uid := range []string{"u1", "u2"} {
		tok, err := auth.IssueToken(uid, time.Hour)
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		h.tokens[uid] = tok
	}
	return h
}

// do sends body as JSON; a string body is sent verbatim.
func (h *harness) do(user, method, path string, body any) (int, map[string]any) {
	h.t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if tok := h.tokens[user]; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	out := map[string]any{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			h.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

func (h *harness) expect(user, method, path string, body any, status int, code string) map[string]any {
	h.t.Helper()
	got, out := h.do(user, method, path, body)
	if got != status {
		h.t.Fatalf("%s %s: expected %d, got %d (%v)", method, path, status, got, out)
	}
	if code != "" && out["code"] != code {
		h.t.Fatalf("%s %s: expected code %q, got %v", method, path, code, out)
	}
	if status < 400 && out["success"] != true {
		h.t.Fatalf("%s %s: expected success envelope, got %v", method, path, out)
	}
	if status >= 400 && out["success"] != false {
		h.t.Fatalf("%s %s: expected failure envelope, got %v", method, path, out)
	}
	return out
}

func obj(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T %v", v, v)
	}
	return m
}

func list(t *testing.T, v any) []any {
	t.Helper()
	l, ok := v.([]any)
	if !ok {
		t.Fatalf("expected array, got %T %v", v, v)
	}
	return l
}

func TestHealthAndDocsArePublic(t *testing.T) {
	h := newHarness(t)

	code, out := h.do("", http.MethodGet, "/healthcheck", nil)
	if code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("healthcheck: %d %v", code, out)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/docs/openapi.yaml", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/flashcards/{id}/review") {
		t.Fatalf("openapi: %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	h.expect("", http.MethodGet, "/v1/flashcards", nil, http.StatusUnauthorized, "missing_token")
	h.expect("", http.MethodPost, "/v1/research/create", map[string]any{"topic": "x"}, http.StatusUnauthorized, "missing_token")
}

func TestFlashcardRoutes(t *testing.T) {
	h := newHarness(t)

	h.expect("u1", http.MethodPost, "/v1/flashcards", map[string]any{"front": "f"}, http.StatusBadRequest, "missing_field")
	h.expect("u1", http.MethodPost, "/v1/flashcards", "{not json", http.StatusBadRequest, "invalid_request")

	out := h.expect("u1", http.MethodPost, "/v1/flashcards", map[string]any{"front": "Mitose?", "back": "Divisão celular", "tags": []string{"biologia"}}, http.StatusOK, "")
	if out["message"] != "Flashcard criado com sucesso." {
		t.Fatalf("create message: %v", out)
	}
	card := obj(t, out["flashcard"])
	id, _ := card["id"].(string)
	if id == "" || card["easeFactor"] != 2.5 || card["repetitions"] != float64(0) {
		t.Fatalf("created card: %v", card)
	}

	review := fmt.Sprintf("/v1/flashcards/%s/review", id)
	h.expect("u1", http.MethodPost, review, map[string]any{}, http.StatusBadRequest, "missing_field")
	h.expect("u1", http.MethodPost, review, map[string]any{"quality": "5"}, http.StatusBadRequest, "invalid_quality")
	h.expect("u1", http.MethodPost, review, map[string]any{"quality": 4.5}, http.StatusBadRequest, "invalid_quality")
	h.expect("u1", http.MethodPost, review, map[string]any{"quality": 7}, http.StatusBadRequest, "invalid_quality")
	h.expect("u2", http.MethodPost, review, map[string]any{"quality": 5}, http.StatusForbidden, "forbidden")

	out = h.expect("u1", http.MethodPost, review, map[string]any{"quality": 5}, http.StatusOK, "")
	card = obj(t, out["flashcard"])
	ef, _ := card["easeFactor"].(float64)
	if card["repetitions"] != float64(1) || card["interval"] != float64(1) || math.Abs(ef-2.6) > 1e-9 {
		t.Fatalf("reviewed card: %v", card)
	}

	out = h.expect("u1", http.MethodPut, "/v1/flashcards/"+id, map[string]any{"userNotes": "revisar"}, http.StatusOK, "")
	if obj(t, out["flashcard"])["userNotes"] != "revisar" {
		t.Fatalf("update: %v", out)
	}

	h.expect("u1", http.MethodGet, "/v1/flashcards?filter=bogus", nil, http.StatusBadRequest, "invalid_filter")
	out = h.expect("u1", http.MethodGet, "/v1/flashcards?filter=learning", nil, http.StatusOK, "")
	if out["total"] != float64(1) {
		t.Fatalf("learning filter: %v", out)
	}
	out = h.expect("u1", http.MethodGet, "/v1/flashcards/due", nil, http.StatusOK, "")
	if out["total"] != float64(0) {
		t.Fatalf("nothing should be due after review: %v", out)
	}
	stats := obj(t, h.expect("u1", http.MethodGet, "/v1/flashcards/stats", nil, http.StatusOK, "")["stats"])
	if stats["totalFlashcards"] != float64(1) || stats["learningCards"] != float64(1) {
		t.Fatalf("stats: %v", stats)
	}

	h.expect("u1", http.MethodDelete, "/v1/flashcards/"+id, nil, http.StatusOK, "")
	h.expect("u1", http.MethodGet, "/v1/flashcards/"+id, nil, http.StatusNotFound, "flashcard_not_found")
}

func TestQuestionAndChatRoutes(t *testing.T) {
	h := newHarness(t)
	q := testutil.SeedQuestion(t, context.Background(), h.db, "u1")

	rate := "/v1/questions/" + q.ID + "/rate"
	h.expect("u1", http.MethodPost, rate, map[string]any{}, http.StatusBadRequest, "missing_field")
	h.expect("u1", http.MethodPost, rate, map[string]any{"rating": 6}, http.StatusBadRequest, "invalid_rating")
	h.expect("u1", http.MethodPost, "/v1/questions/q_missing/rate", map[string]any{"rating": 2}, http.StatusNotFound, "question_not_found")
	out := h.expect("u1", http.MethodPost, rate, map[string]any{"rating": 2}, http.StatusOK, "")
	if out["message"] != "Questão classificada com sucesso." {
		t.Fatalf("rate: %v", out)
	}
	out = h.expect("u1", http.MethodGet, "/v1/questions/errors?threshold=3", nil, http.StatusOK, "")
	errs := list(t, out["errorQuestions"])
	if len(errs) != 1 || obj(t, errs[0])["averageRating"] != float64(2) {
		t.Fatalf("error questions: %v", out)
	}

	h.llm.Replies = []string{"A clorofila absorve luz."}
	start := "/v1/questions/" + q.ID + "/chat/start"
	h.expect("u1", http.MethodPost, start, map[string]any{}, http.StatusBadRequest, "missing_field")
	out = h.expect("u1", http.MethodPost, start, map[string]any{"query": "Por quê?"}, http.StatusOK, "")
	chat := obj(t, out["chat"])
	msgs := list(t, chat["messages"])
	if len(msgs) != 2 || obj(t, msgs[0])["isUser"] != true || obj(t, msgs[1])["content"] != "A clorofila absorve luz." {
		t.Fatalf("chat start: %v", chat)
	}
	chatID, _ := chat["id"].(string)

	h.expect("u2", http.MethodPost, "/v1/questions/chat/"+chatID+"/continue", map[string]any{"query": "oi"}, http.StatusForbidden, "forbidden")

	h.llm.Err = errors.New("upstream down")
	out = h.expect("u1", http.MethodPost, "/v1/questions/chat/"+chatID+"/continue", map[string]any{"query": "E depois?"}, http.StatusServiceUnavailable, "generation_unavailable")
	if strings.Contains(fmt.Sprint(out["error"]), "upstream down") {
		t.Fatalf("upstream error leaked: %v", out)
	}
	h.llm.Err = nil

	out = h.expect("u1", http.MethodGet, "/v1/questions/chat/history", nil, http.StatusOK, "")
	if out["total"] != float64(1) {
		t.Fatalf("history: %v", out)
	}
	out = h.expect("u1", http.MethodGet, "/v1/questions/chat/"+chatID, nil, http.StatusOK, "")
	if len(list(t, obj(t, out["chat"])["messages"])) != 2 {
		t.Fatalf("failed continue must not append messages: %v", out)
	}
}

const examReply = `[
 {"text": "Quanto é 2+2?", "options": [{"id": "a", "text": "3"}, {"id": "b", "text": "4"}], "correctAnswer": "b", "explanation": "soma", "subject": "Matemática"},
 {"text": "Quanto é 3x3?", "options": [{"id": "a", "text": "9"}, {"id": "b", "text": "6"}], "correctAnswer": "a", "explanation": "produto", "subject": "Matemática"}
]`

func TestExamRoutes(t *testing.T) {
	h := newHarness(t)
	h.llm.Replies = []string{examReply}

	h.expect("u1", http.MethodPost, "/v1/exams/generate", map[string]any{"examType": "weird", "questionCount": 2}, http.StatusBadRequest, "invalid_exam_config")

	out := h.expect("u1", http.MethodPost, "/v1/exams/generate", map[string]any{
		"examType":         "quick",
		"questionCount":    2,
		"estimatedTime":    10,
		"contentSelection": map[string]any{"method": "subject", "subject": "mathematics"},
	}, http.StatusCreated, "")
	if out["message"] != "Simulado gerado com sucesso." {
		t.Fatalf("generate: %v", out)
	}
	exam := obj(t, out["exam"])
	examID, _ := exam["id"].(string)
	qs := list(t, exam["questions"])
	if exam["status"] != domain.ExamStatusReady || len(qs) != 2 {
		t.Fatalf("exam: %v", exam)
	}

	h.expect("u2", http.MethodGet, "/v1/exams/"+examID, nil, http.StatusForbidden, "forbidden")
	out = h.expect("u1", http.MethodPost, "/v1/exams/"+examID+"/start", nil, http.StatusOK, "")
	if obj(t, out["exam"])["status"] != domain.ExamStatusInProgress {
		t.Fatalf("start: %v", out)
	}

	first := obj(t, qs[0])
	second := obj(t, qs[1])
	wrong := "a"
	if second["correctAnswer"] == "a" {
		wrong = "b"
	}
	answers := map[string]string{
		first["id"].(string):  first["correctAnswer"].(string),
		second["id"].(string): wrong,
	}
	out = h.expect("u1", http.MethodPost, "/v1/exams/"+examID+"/submit", map[string]any{"answers": answers, "timeSpent": 300}, http.StatusOK, "")
	result := obj(t, out["result"])
	if result["score"] != float64(50) || result["correctAnswers"] != float64(1) || result["timeSpent"] != float64(300) {
		t.Fatalf("result: %v", result)
	}
	h.expect("u1", http.MethodPost, "/v1/exams/"+examID+"/submit", map[string]any{"answers": answers}, http.StatusConflict, "exam_completed")

	out = h.expect("u1", http.MethodGet, "/v1/exams/history?status=completed", nil, http.StatusOK, "")
	pg := obj(t, out["pagination"])
	if pg["total"] != float64(1) || pg["currentPage"] != float64(1) || len(list(t, out["exams"])) != 1 {
		t.Fatalf("history: %v", out)
	}
	h.expect("u1", http.MethodGet, "/v1/exams/history?status=lost", nil, http.StatusBadRequest, "invalid_status")
}

func TestResearchRoutes(t *testing.T) {
	h := newHarness(t)

	h.expect("u1", http.MethodPost, "/v1/research/create", map[string]any{}, http.StatusBadRequest, "missing_field")

	h.runner.err = apierr.GenerationParse(errors.New("no json array in flashcard stage"))
	out := h.expect("u1", http.MethodPost, "/v1/research/create", map[string]any{"topic": "fotossíntese"}, http.StatusBadGateway, "generation_parse_failed")
	if strings.Contains(fmt.Sprint(out["error"]), "json array") {
		t.Fatalf("parse detail leaked: %v", out)
	}
	out = h.expect("u1", http.MethodGet, "/v1/research", nil, http.StatusOK, "")
	if out["total"] != float64(0) {
		t.Fatalf("failed research persisted: %v", out)
	}

	h.runner.err = nil
	h.runner.result = &research.Result{
		Content:    "<h1>Fotossíntese</h1>",
		Flashcards: []domain.CardFace{{Front: "Clorofila?", Back: "Pigmento"}},
	}
	out = h.expect("u1", http.MethodPost, "/v1/research/create", map[string]any{"topic": "fotossíntese"}, http.StatusCreated, "")
	row := obj(t, out["research"])
	id, _ := row["id"].(string)
	if row["topic"] != "fotossíntese" || len(list(t, row["flashcards"])) != 1 {
		t.Fatalf("research: %v", row)
	}

	h.expect("u1", http.MethodGet, "/v1/research/"+id, nil, http.StatusOK, "")
	h.expect("u2", http.MethodGet, "/v1/research/"+id, nil, http.StatusForbidden, "forbidden")
	h.expect("u1", http.MethodGet, "/v1/research/r_missing", nil, http.StatusNotFound, "research_not_found")
}
