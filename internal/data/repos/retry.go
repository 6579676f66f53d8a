package repos

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

// reader retries idempotent reads with exponential backoff. Writes never go through it.
type reader struct {
	log      *logger.Logger
	maxTries uint
}

func newReader(log *logger.Logger, maxTries uint) reader {
	if maxTries == 0 {
		maxTries = 1
	}
	return reader{log: log, maxTries: maxTries}
}

func readWithRetry[T any](ctx context.Context, r reader, name string, op func() (T, error)) (T, error) {
	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if !retryableRead(err) {
			return v, backoff.Permanent(err)
		}
		r.log.Warn("read failed, retrying", "op", name, "attempt", attempt, "error", err.Error())
		return v, err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
}

func retryableRead(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, gorm.ErrInvalidData), errors.Is(err, gorm.ErrInvalidField):
		return false
	case errors.Is(err, domain.ErrMalformedFlashcard), errors.Is(err, domain.ErrMalformedQuestion):
		return false
	}
	return true
}
