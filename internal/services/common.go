package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/ctxutil"
)

// Clock returns the current time. Services store UTC at second precision.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func requireUser(ctx context.Context) (string, error) {
	uid := ctxutil.UserID(ctx)
	if uid == "" {
		return "", apierr.Unauthorized("unauthorized", errors.New("user id not set in request data"))
	}
	return uid, nil
}

// defaultIfOutside returns def when v is outside [lo, hi].
func defaultIfOutside(v, def, lo, hi int) int {
	if v < lo || v > hi {
		return def
	}
	return v
}

func internalErr(code string, err error) error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apierr.New(http.StatusInternalServerError, code, err)
}
