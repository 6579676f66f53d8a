package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/enemia-backend/internal/data/repos"
	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/modules/generation"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai"
)

const (
	defaultChatHistory = 10
	maxChatHistory     = 50
	chatPreviewRunes   = 100
)

// ChatTurn is the result of starting or continuing a chat: the two messages just added.
// Question is only set when the chat was started.
type ChatTurn struct {
	ChatID   string
	Question *domain.Question
	Messages []domain.ChatMessage
}

// ChatSummary is one row of the chat history listing.
type ChatSummary struct {
	ID           string    `json:"id"`
	QuestionID   string    `json:"questionId"`
	QuestionText string    `json:"questionText"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

type ChatView struct {
	Chat     *domain.QuestionChat
	Question *domain.Question
}

type ChatService interface {
	Start(dbc dbctx.Context, questionID, query string) (*ChatTurn, error)
	Continue(dbc dbctx.Context, chatID, query string) (*ChatTurn, error)
	History(dbc dbctx.Context, limit int) ([]ChatSummary, error)
	Get(dbc dbctx.Context, chatID string) (*ChatView, error)
}

type chatService struct {
	log       *logger.Logger
	chats     repos.QuestionChatRepo
	questions repos.QuestionRepo
	llm       openai.Client
	now       Clock
}

func NewChatService(log *logger.Logger, chats repos.QuestionChatRepo, questions repos.QuestionRepo, llm openai.Client, now Clock) ChatService {
	if now == nil {
		now = SystemClock
	}
	return &chatService{
		log:       log.With("service", "ChatService"),
		chats:     chats,
		questions: questions,
		llm:       llm,
		now:       now,
	}
}

func (s *chatService) question(dbc dbctx.Context, id string) (*domain.Question, error) {
	q, err := s.questions.GetByID(dbc, id)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedQuestion) {
			return nil, apierr.Validation("invalid_question", "question does not have the expected structure")
		}
		return nil, internalErr("question_read_failed", fmt.Errorf("get question: %w", err))
	}
	if q == nil {
		return nil, apierr.NotFound("question_not_found", "question not found")
	}
	return q, nil
}

func (s *chatService) tutor(dbc dbctx.Context, span string, questionID, prompt string) (string, error) {
	ctx, sp := otel.Tracer("enemia/services").Start(dbc.Ctx, span)
	defer sp.End()
	sp.SetAttributes(attribute.String("question.id", questionID))
	reply, err := s.llm.GenerateText(ctx, "", prompt)
	if err != nil {
		sp.RecordError(err)
		return "", apierr.Unavailable("generation_unavailable", fmt.Errorf("tutor reply: %w", err))
	}
	return reply, nil
}

// Start opens the caller's chat about a question. A chat already open for the same
// question is replaced.
func (s *chatService) Start(dbc dbctx.Context, questionID, query string) (*ChatTurn, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, apierr.Validation("missing_field", "missing required field: query")
	}
	q, err := s.question(dbc, questionID)
	if err != nil {
		return nil, err
	}
	prompt, err := generation.ChatStartPrompt(q, query)
	if err != nil {
		return nil, internalErr("prompt_render_failed", err)
	}
	reply, err := s.tutor(dbc, "chat.start", q.ID, prompt)
	if err != nil {
		return nil, err
	}

	now := s.now()
	msgs := []domain.ChatMessage{
		{Content: query, IsUser: true, Timestamp: now},
		{Content: reply, IsUser: false, Timestamp: now},
	}
	chat := &domain.QuestionChat{
		ID:         domain.ChatID(q.ID, uid),
		QuestionID: q.ID,
		UserID:     uid,
		Messages:   msgs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.chats.Upsert(dbc, chat); err != nil {
		return nil, internalErr("chat_save_failed", fmt.Errorf("save chat: %w", err))
	}
	return &ChatTurn{ChatID: chat.ID, Question: q, Messages: msgs}, nil
}

func (s *chatService) owned(dbc dbctx.Context, chatID string) (*domain.QuestionChat, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	chat, err := s.chats.GetByID(dbc, chatID)
	if err != nil {
		return nil, internalErr("chat_read_failed", fmt.Errorf("get chat: %w", err))
	}
	if chat == nil {
		return nil, apierr.NotFound("chat_not_found", "chat not found")
	}
	if chat.UserID != uid {
		return nil, apierr.Forbidden("chat belongs to another user")
	}
	return chat, nil
}

func (s *chatService) Continue(dbc dbctx.Context, chatID, query string) (*ChatTurn, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apierr.Validation("missing_field", "missing required field: query")
	}
	chat, err := s.owned(dbc, chatID)
	if err != nil {
		return nil, err
	}
	q, err := s.question(dbc, chat.QuestionID)
	if err != nil {
		return nil, err
	}
	prompt, err := generation.ChatContinuePrompt(q, chat.Messages, query)
	if err != nil {
		return nil, internalErr("prompt_render_failed", err)
	}
	reply, err := s.tutor(dbc, "chat.continue", q.ID, prompt)
	if err != nil {
		return nil, err
	}

	now := s.now()
	added := []domain.ChatMessage{
		{Content: query, IsUser: true, Timestamp: now},
		{Content: reply, IsUser: false, Timestamp: now},
	}
	chat.Messages = append(chat.Messages, added...)
	chat.UpdatedAt = now
	if err := s.chats.Upsert(dbc, chat); err != nil {
		return nil, internalErr("chat_save_failed", fmt.Errorf("save chat: %w", err))
	}
	return &ChatTurn{ChatID: chat.ID, Messages: added}, nil
}

// History lists the caller's most recently active chats. Chats whose question no longer
// exists are left out.
func (s *chatService) History(dbc dbctx.Context, limit int) ([]ChatSummary, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	limit = defaultIfOutside(limit, defaultChatHistory, 1, maxChatHistory)
	chats, err := s.chats.ListByUser(dbc, uid, limit)
	if err != nil {
		return nil, internalErr("chat_list_failed", fmt.Errorf("list chats: %w", err))
	}
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.QuestionID)
	}
	qs, err := s.questions.GetByIDs(dbc, ids)
	if err != nil {
		return nil, internalErr("question_read_failed", fmt.Errorf("get chat questions: %w", err))
	}
	byID := make(map[string]*domain.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}

	out := make([]ChatSummary, 0, len(chats))
	for _, c := range chats {
		q, ok := byID[c.QuestionID]
		if !ok {
			continue
		}
		out = append(out, ChatSummary{
			ID:           c.ID,
			QuestionID:   c.QuestionID,
			QuestionText: preview(q.Text, chatPreviewRunes),
			UpdatedAt:    c.UpdatedAt,
			MessageCount: len(c.Messages),
		})
	}
	return out, nil
}

func (s *chatService) Get(dbc dbctx.Context, chatID string) (*ChatView, error) {
	chat, err := s.owned(dbc, chatID)
	if err != nil {
		return nil, err
	}
	q, err := s.question(dbc, chat.QuestionID)
	if err != nil {
		return nil, err
	}
	return &ChatView{Chat: chat, Question: q}, nil
}

// preview cuts s to n runes and marks the cut with "...".
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
