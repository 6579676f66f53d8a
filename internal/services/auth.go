package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/ctxutil"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

// Identity is what a verified bearer token yields.
type Identity struct {
	UserID string
	Claims map[string]any
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type AuthService interface {
	TokenVerifier
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(userID string, ttl time.Duration) (string, error)
}

type authService struct {
	log      *logger.Logger
	secret   []byte
	issuer   string
	audience string
}

// NewAuthService verifies HS256 tokens whose subject is the user id. Issuer and audience are
// checked only when configured.
func NewAuthService(log *logger.Logger, secret, issuer, audience string) AuthService {
	return &authService{
		log:      log.With("service", "AuthService"),
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

func (as *authService) Verify(ctx context.Context, tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Identity{}, apierr.Unauthorized("missing_token", errors.New("token is missing"))
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	if as.audience != "" {
		opts = append(opts, jwt.WithAudience(as.audience))
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token is invalid")
		}
		return Identity{}, apierr.Unauthorized("invalid_token", fmt.Errorf("failed to parse token: %w", err))
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return Identity{}, apierr.Unauthorized("invalid_token", errors.New("token has no subject"))
	}
	return Identity{UserID: sub, Claims: map[string]any(claims)}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	id, err := as.Verify(ctx, tokenString)
	if err != nil {
		return ctx, err
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      id.UserID,
		Claims:      id.Claims,
	}), nil
}

// IssueToken mints a token the verifier accepts. Used by the dev CLI and tests.
func (as *authService) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    as.issuer,
	}
	if as.audience != "" {
		claims.Audience = jwt.ClaimStrings{as.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.secret)
}
