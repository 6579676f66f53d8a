package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/enemia-backend/internal/platform/httpx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

// Client is the text-generation collaborator. Implementations must be safe for concurrent use.
type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	CreateConversation(ctx context.Context) (string, error)
	RunTurn(ctx context.Context, req TurnRequest) (TurnResult, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// TurnRequest is one user message sent into a stored conversation.
type TurnRequest struct {
	ConversationID string
	Instructions   string
	Input          string
	WebSearch      bool
}

// OutputItem is one item of the model's output, in the order it was produced.
type OutputItem struct {
	Type   string
	Role   string
	Status string
	Texts  []string
}

type TurnResult struct {
	ResponseID string
	Items      []OutputItem
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	maxRetries  int
	temperature *float64
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing llm api key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	temp := cfg.Temperature
	return &client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		httpClient:  &http.Client{Timeout: timeout},
		maxRetries:  cfg.MaxRetries,
		temperature: &temp,
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

var tracer = otel.Tracer("github.com/yungbote/enemia-backend/internal/platform/openai")

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// do sends one request and decodes the reply into out. With retryable unset a failure is returned after the
// first attempt, since the server may already have applied the request.
func (c *client) do(ctx context.Context, method, path string, body any, out any, retryable bool) error {
	ctx, span := tracer.Start(ctx, "openai "+method+" "+path)
	defer span.End()

	backoff := time.Second
	for attempt := 0; ; attempt++ {
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			span.SetAttributes(attribute.Int("openai.attempts", attempt+1))
			if out == nil || len(raw) == 0 {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if !retryable || !httpx.IsRetryableError(err) || attempt >= c.maxRetries || ctx.Err() != nil {
			span.SetAttributes(attribute.Int("openai.attempts", attempt+1))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if sErr := httpx.Sleep(ctx, sleepFor); sErr != nil {
			return sErr
		}
		backoff *= 2
	}
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Type string `json:"type"`
}

type responsesRequest struct {
	Model        string         `json:"model"`
	Conversation string         `json:"conversation,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Input        []inputMessage `json:"input"`
	Tools        []tool         `json:"tools,omitempty"`
	Temperature  *float64       `json:"temperature,omitempty"`
}

type responsesResponse struct {
	ID     string `json:"id"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Status  string `json:"status,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func (r responsesResponse) items() []OutputItem {
	out := make([]OutputItem, 0, len(r.Output))
	for _, o := range r.Output {
		item := OutputItem{Type: o.Type, Role: o.Role, Status: o.Status}
		for _, part := range o.Content {
			if part.Type == "output_text" {
				item.Texts = append(item.Texts, part.Text)
			}
		}
		out = append(out, item)
	}
	return out
}

func (r responsesResponse) text() string {
	var b strings.Builder
	for _, item := range r.items() {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, t := range item.Texts {
			b.WriteString(t)
		}
	}
	return b.String()
}

// send posts a Responses request, retrying once without temperature if the model rejects that parameter.
func (c *client) send(ctx context.Context, req *responsesRequest, retryable bool) (responsesResponse, error) {
	var resp responsesResponse
	err := c.do(ctx, http.MethodPost, "/v1/responses", req, &resp, retryable)
	if err != nil && req.Temperature != nil && strings.Contains(strings.ToLower(err.Error()), "temperature") {
		c.log.Debug("model rejected temperature, retrying without it", "model", req.Model)
		req.Temperature = nil
		resp = responsesResponse{}
		err = c.do(ctx, http.MethodPost, "/v1/responses", req, &resp, retryable)
	}
	if err != nil {
		return responsesResponse{}, err
	}
	if resp.Refusal != "" {
		return responsesResponse{}, fmt.Errorf("model refused: %s", resp.Refusal)
	}
	return resp, nil
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := &responsesRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	if strings.TrimSpace(system) != "" {
		req.Input = append(req.Input, inputMessage{Role: "system", Content: system})
	}
	req.Input = append(req.Input, inputMessage{Role: "user", Content: user})

	resp, err := c.send(ctx, req, true)
	if err != nil {
		return "", err
	}
	text := resp.text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no output_text found in response")
	}
	return text, nil
}

func (c *client) CreateConversation(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", map[string]any{}, &out, false); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("openai create conversation: missing id")
	}
	return strings.TrimSpace(out.ID), nil
}

func (c *client) DeleteConversation(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return nil
	}
	return c.do(ctx, http.MethodDelete, "/v1/conversations/"+conversationID, nil, nil, true)
}

func (c *client) RunTurn(ctx context.Context, tr TurnRequest) (TurnResult, error) {
	if strings.TrimSpace(tr.ConversationID) == "" {
		return TurnResult{}, errors.New("conversation_id required")
	}
	req := &responsesRequest{
		Model:        c.model,
		Conversation: tr.ConversationID,
		Instructions: strings.TrimSpace(tr.Instructions),
		Input:        []inputMessage{{Role: "user", Content: tr.Input}},
		Temperature:  c.temperature,
	}
	if tr.WebSearch {
		req.Tools = []tool{{Type: "web_search"}}
	}
	// A turn appends to the stored conversation, so a failed post is not replayed.
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return TurnResult{}, err
	}
	return TurnResult{ResponseID: resp.ID, Items: resp.items()}, nil
}
