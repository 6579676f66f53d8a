package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/modules/generation"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai"
)

const (
	StageSearch     = "search"
	StageContent    = "content"
	StageFlashcards = "flashcards"
)

// Stage is one step of the pipeline. BuildPrompt receives the topic and the previous stage's output.
type Stage struct {
	Name        string
	Agent       Agent
	BuildPrompt func(topic, previous string) string
}

// Result is everything the pipeline produced. It is only returned when every stage succeeded.
type Result struct {
	Topic      string
	Search     string
	Content    string
	Flashcards []domain.CardFace
}

func catalogStage(name, agentName string, prompt generation.PromptName, webSearch bool) (Stage, error) {
	tmpl, err := generation.Get(prompt)
	if err != nil {
		return Stage{}, err
	}
	return Stage{
		Name: name,
		Agent: Agent{
			Name:        agentName,
			Instruction: tmpl.System(generation.Input{}),
			WebSearch:   webSearch,
		},
		BuildPrompt: func(topic, previous string) string {
			return tmpl.User(generation.Input{Topic: topic, Previous: previous})
		},
	}, nil
}

// DefaultStages returns search, content and flashcards, in that order.
func DefaultStages() ([]Stage, error) {
	search, err := catalogStage(StageSearch, "search_agent", generation.PromptResearchSearch, true)
	if err != nil {
		return nil, err
	}
	content, err := catalogStage(StageContent, "content_creation_agent", generation.PromptResearchContent, false)
	if err != nil {
		return nil, err
	}
	cards, err := catalogStage(StageFlashcards, "flashcard_creation_agent", generation.PromptResearchFlashcards, false)
	if err != nil {
		return nil, err
	}
	return []Stage{search, content, cards}, nil
}

func Agents(stages []Stage) []Agent {
	out := make([]Agent, 0, len(stages))
	for _, s := range stages {
		out = append(out, s.Agent)
	}
	return out
}

// Runner executes stages strictly in order, threading each output into the next prompt.
type Runner struct {
	log      *logger.Logger
	sessions SessionService
	stages   []Stage
}

func NewRunner(baseLog *logger.Logger, sessions SessionService, stages []Stage) *Runner {
	return &Runner{log: baseLog.With("service", "ResearchRunner"), sessions: sessions, stages: stages}
}

// NewDefaultRunner wires the default stages to an LLM-backed session service.
func NewDefaultRunner(baseLog *logger.Logger, llm openai.Client) (*Runner, error) {
	stages, err := DefaultStages()
	if err != nil {
		return nil, err
	}
	return NewRunner(baseLog, NewLLMSessionService(baseLog, llm, Agents(stages)...), stages), nil
}

// SessionID names a stage's session: {userId}_{stage}_{topic}.
func SessionID(userID, stage, topic string) string {
	return userID + "_" + stage + "_" + topic
}

// Run executes the whole pipeline. The last stage's output must contain a ```json block
// holding an array of {front, back}; there is no fallback.
func (r *Runner) Run(ctx context.Context, userID, topic string) (*Result, error) {
	if len(r.stages) == 0 {
		return nil, errors.New("research runner has no stages")
	}
	ctx, span := otel.Tracer("enemia/research").Start(ctx, "research.pipeline")
	defer span.End()

	outputs := make(map[string]string, len(r.stages))
	previous := ""
	for _, st := range r.stages {
		out, err := r.runStage(ctx, st, userID, topic, previous)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, st.Name)
			return nil, err
		}
		outputs[st.Name] = out
		previous = out
	}

	cards, err := generation.ExtractFencedJSON[[]domain.CardFace](previous)
	if err != nil {
		r.log.Warn("research flashcards unparseable", "topic", topic, "bytes", len(previous))
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse")
		return nil, err
	}
	if cards == nil {
		cards = []domain.CardFace{}
	}
	return &Result{
		Topic:      topic,
		Search:     outputs[StageSearch],
		Content:    outputs[StageContent],
		Flashcards: cards,
	}, nil
}

func (r *Runner) runStage(ctx context.Context, st Stage, userID, topic, previous string) (string, error) {
	ctx, span := otel.Tracer("enemia/research").Start(ctx, "research.stage."+st.Name)
	defer span.End()
	span.SetAttributes(attribute.String("research.agent", st.Agent.Name))

	sessionID := SessionID(userID, st.Name, topic)
	if err := r.sessions.CreateSession(ctx, st.Agent.Name, userID, sessionID); err != nil {
		if errors.Is(err, ErrSessionExists) {
			return "", apierr.Conflict("research_in_progress", err)
		}
		return "", apierr.Unavailable("research_stage_failed", fmt.Errorf("stage %s: %w", st.Name, err))
	}
	defer func() {
		if err := r.sessions.DeleteSession(context.WithoutCancel(ctx), userID, sessionID); err != nil {
			r.log.Warn("delete agent session failed", "stage", st.Name, "error", err.Error())
		}
	}()

	start := time.Now()
	events, err := r.sessions.Run(ctx, userID, sessionID, st.BuildPrompt(topic, previous))
	if err != nil {
		span.RecordError(err)
		r.logStageFailure(st, userID, sessionID, err)
		return "", apierr.Unavailable("research_stage_failed", fmt.Errorf("stage %s: %w", st.Name, err))
	}
	out := FinalText(events)
	if strings.TrimSpace(out) == "" {
		err := fmt.Errorf("stage %s produced no final response", st.Name)
		r.logStageFailure(st, userID, sessionID, err)
		return "", apierr.GenerationParse(err)
	}
	r.log.Info("research stage finished", "stage", st.Name, "bytes", len(out), "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// eventLog is implemented by session services that keep a per-session history.
type eventLog interface {
	Events(userID, sessionID string) []Event
}

// logStageFailure runs before the session is deleted, so the session's history is still readable.
func (r *Runner) logStageFailure(st Stage, userID, sessionID string, err error) {
	fields := []interface{}{"stage", st.Name, "session_id", sessionID, "error", err.Error()}
	if el, ok := r.sessions.(eventLog); ok {
		evs := el.Events(userID, sessionID)
		fields = append(fields, "events", len(evs))
		if n := len(evs); n > 0 {
			last := evs[n-1]
			fields = append(fields, "last_event_author", last.Author, "last_event_final", last.Final)
		}
	}
	r.log.Warn("research stage failed", fields...)
}

// FinalText concatenates the text parts of final events in order, each followed by a newline.
func FinalText(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if !ev.Final {
			continue
		}
		for _, p := range ev.Parts {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}
