package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/data/db"
	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

var dbSeq int64

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// DB returns a migrated database private to the calling test. It uses TEST_POSTGRES_DSN when set,
// otherwise a named in-memory SQLite database.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	cfg := db.Config{Driver: "sqlite"}
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		cfg = db.Config{Driver: "postgres", DSN: dsn}
	} else {
		name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
		cfg.DSN = fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbSeq, 1))
	}
	svc, err := db.Open(Logger(tb), cfg)
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrateAll(svc.DB()); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	tb.Cleanup(func() { _ = svc.Close() })
	return svc.DB()
}

// Tx begins a transaction that is rolled back when the test ends.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() { _ = tx.Rollback().Error })
	return tx
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string) *domain.Question {
	tb.Helper()
	q := &domain.Question{
		ID:            domain.NewID(domain.PrefixQuestion),
		Text:          "Qual é a função da clorofila na fotossíntese?",
		Options:       []domain.Option{{ID: "a", Text: "Absorver luz"}, {ID: "b", Text: "Fixar nitrogênio"}, {ID: "c", Text: "Produzir água"}, {ID: "d", Text: "Liberar CO2"}, {ID: "e", Text: "Nenhuma"}},
		CorrectAnswer: "a",
		Explanation:   "A clorofila absorve energia luminosa usada na fase clara.",
		Subject:       "natural_sciences",
		UserID:        userID,
		Topic:         "fotossíntese",
		Difficulty:    domain.DifficultyMedium,
		Ratings:       []domain.Rating{},
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func SeedFlashcard(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string, now time.Time) *domain.Flashcard {
	tb.Helper()
	f := domain.NewFlashcard(userID, "O que é mitose?", "Divisão celular que gera duas células idênticas.", []string{"biologia"}, now)
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed flashcard: %v", err)
	}
	return f
}
