package openaitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/enemia-backend/internal/platform/openai"
)

// Fake is a scripted openai.Client. GenerateText pops Replies in order and repeats the last one.
type Fake struct {
	mu sync.Mutex

	Replies []string
	Err     error
	// Gate, when set, blocks GenerateText until it is closed or the context ends.
	Gate chan struct{}
	// Turn answers RunTurn. Nil yields an empty result.
	Turn func(req openai.TurnRequest) (openai.TurnResult, error)

	prompts       []string
	turns         []openai.TurnRequest
	conversations int
	deleted       []string
}

var _ openai.Client = (*Fake)(nil)

func (f *Fake) GenerateText(ctx context.Context, system string, user string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, user)
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Replies) == 0 {
		return "", fmt.Errorf("openaitest: no reply scripted")
	}
	reply := f.Replies[0]
	if len(f.Replies) > 1 {
		f.Replies = f.Replies[1:]
	}
	return reply, nil
}

func (f *Fake) CreateConversation(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations++
	return fmt.Sprintf("conv_%d", f.conversations), nil
}

func (f *Fake) RunTurn(ctx context.Context, req openai.TurnRequest) (openai.TurnResult, error) {
	f.mu.Lock()
	f.turns = append(f.turns, req)
	turn := f.Turn
	f.mu.Unlock()
	if turn == nil {
		return openai.TurnResult{}, nil
	}
	return turn(req)
}

func (f *Fake) DeleteConversation(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, conversationID)
	return nil
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *Fake) Turns() []openai.TurnRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.TurnRequest(nil), f.turns...)
}

func (f *Fake) Conversations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations
}

func (f *Fake) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
