package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai"
)

var (
	ErrSessionExists   = errors.New("agent session already exists")
	ErrSessionNotFound = errors.New("agent session not found")
	ErrUnknownApp      = errors.New("no agent registered for app")
)

type Part struct {
	Text string
}

// Event is one entry of a session's log. Final marks the agent's answer as opposed to
// intermediate tool activity.
type Event struct {
	Author    string
	Final     bool
	Parts     []Part
	Timestamp time.Time
}

// SessionService runs single agents inside isolated conversational sessions.
type SessionService interface {
	CreateSession(ctx context.Context, appName, userID, sessionID string) error
	Run(ctx context.Context, userID, sessionID, message string) ([]Event, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

// Agent is the fixed configuration behind an app name.
type Agent struct {
	Name        string
	Instruction string
	WebSearch   bool
}

type session struct {
	agent          Agent
	conversationID string
	events         []Event
}

// LLMSessionService keeps session state in memory and backs each session with one
// stored LLM conversation.
type LLMSessionService struct {
	log *logger.Logger
	llm openai.Client
	now func() time.Time

	mu       sync.Mutex
	agents   map[string]Agent
	sessions map[string]*session
}

func NewLLMSessionService(baseLog *logger.Logger, llm openai.Client, agents ...Agent) *LLMSessionService {
	s := &LLMSessionService{
		log:      baseLog.With("service", "LLMSessionService"),
		llm:      llm,
		now:      func() time.Time { return time.Now().UTC() },
		agents:   make(map[string]Agent, len(agents)),
		sessions: map[string]*session{},
	}
	for _, a := range agents {
		s.agents[a.Name] = a
	}
	return s
}

func sessionKey(userID, sessionID string) string {
	return userID + "\x00" + sessionID
}

func (s *LLMSessionService) CreateSession(ctx context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	agent, ok := s.agents[appName]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownApp, appName)
	}
	key := sessionKey(userID, sessionID)
	if _, exists := s.sessions[key]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	// Reserve the key before the network call so a concurrent duplicate is rejected.
	sess := &session{agent: agent}
	s.sessions[key] = sess
	s.mu.Unlock()

	convID, err := s.llm.CreateConversation(ctx)
	if err != nil {
		s.mu.Lock()
		delete(s.sessions, key)
		s.mu.Unlock()
		return fmt.Errorf("create conversation: %w", err)
	}
	s.mu.Lock()
	sess.conversationID = convID
	s.mu.Unlock()
	s.log.Debug("agent session created", "app", appName, "session_id", sessionID)
	return nil
}

func (s *LLMSessionService) Run(ctx context.Context, userID, sessionID, message string) ([]Event, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionKey(userID, sessionID)]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	agent, convID := sess.agent, sess.conversationID
	sess.events = append(sess.events, Event{Author: "user", Parts: []Part{{Text: message}}, Timestamp: s.now()})
	s.mu.Unlock()

	res, err := s.llm.RunTurn(ctx, openai.TurnRequest{
		ConversationID: convID,
		Instructions:   agent.Instruction,
		Input:          message,
		WebSearch:      agent.WebSearch,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s turn: %w", agent.Name, err)
	}
	events := eventsFromItems(agent.Name, res.Items, s.now())

	s.mu.Lock()
	sess.events = append(sess.events, events...)
	s.mu.Unlock()
	return events, nil
}

// eventsFromItems marks assistant messages that come after the last tool item as final.
func eventsFromItems(author string, items []openai.OutputItem, ts time.Time) []Event {
	lastTool := -1
	for i, it := range items {
		if it.Type != "message" {
			lastTool = i
		}
	}
	out := make([]Event, 0, len(items))
	for i, it := range items {
		ev := Event{Author: author, Timestamp: ts}
		for _, t := range it.Texts {
			ev.Parts = append(ev.Parts, Part{Text: t})
		}
		ev.Final = it.Type == "message" && it.Role == "assistant" && i > lastTool
		out = append(out, ev)
	}
	return out
}

func (s *LLMSessionService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	key := sessionKey(userID, sessionID)
	s.mu.Lock()
	sess, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := s.llm.DeleteConversation(ctx, sess.conversationID); err != nil {
		s.log.Warn("delete agent conversation failed", "session_id", sessionID, "error", err.Error())
	}
	return nil
}

// Events returns a copy of a live session's log.
func (s *LLMSessionService) Events(userID, sessionID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey(userID, sessionID)]
	if !ok {
		return nil
	}
	return append([]Event(nil), sess.events...)
}

// Len reports the number of live sessions.
func (s *LLMSessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
