package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/enemia-backend/internal/http/handlers"
	"github.com/yungbote/enemia-backend/internal/platform/cache"
	"github.com/yungbote/enemia-backend/internal/platform/config"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/openai"
)

type Clients struct {
	LLM   openai.Client
	Cache cache.Cache

	// cachePinger is set for backends that live outside the process.
	cachePinger handlers.Pinger
	closeCache  func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg config.Config) (Clients, error) {
	log.Info("Wiring clients...")

	var out Clients
	switch strings.ToLower(cfg.Cache.Backend) {
	case "redis":
		rc, err := cache.NewRedis(ctx, log, cfg.Cache.RedisAddr, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cache: %w", err)
		}
		out.Cache = rc
		out.cachePinger = rc
		out.closeCache = rc.Close
	default:
		out.Cache = cache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxItems)
	}

	llm, err := openai.NewClient(log, openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		if out.closeCache != nil {
			_ = out.closeCache()
		}
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	out.LLM = llm
	return out, nil
}
