package domain

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/enemia-backend/internal/modules/srs"
)

type Flashcard struct {
	ID               string                      `gorm:"column:id;primaryKey" json:"id"`
	UserID           string                      `gorm:"column:user_id;not null;index" json:"userId"`
	Front            string                      `gorm:"column:front;not null" json:"front"`
	Back             string                      `gorm:"column:back;not null" json:"back"`
	Tags             datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	srs.Schedule     `gorm:"embedded"`
	MediaAttachments datatypes.JSONSlice[string] `gorm:"column:media_attachments" json:"mediaAttachments"`
	UserNotes        string                      `gorm:"column:user_notes" json:"userNotes"`
	QuestionID       string                      `gorm:"column:question_id;index" json:"questionId,omitempty"`
	CreatedAt        time.Time                   `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time                   `gorm:"column:updated_at;not null;autoUpdateTime" json:"updatedAt"`
}

func (Flashcard) TableName() string { return "flashcards" }

// NewFlashcard returns an unsaved card with a fresh id and a never-reviewed schedule.
func NewFlashcard(userID, front, back string, tags []string, now time.Time) *Flashcard {
	if tags == nil {
		tags = []string{}
	}
	return &Flashcard{
		ID:               NewID(PrefixFlashcard),
		UserID:           userID,
		Front:            front,
		Back:             back,
		Tags:             tags,
		Schedule:         srs.NewSchedule(now),
		MediaAttachments: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

var ErrMalformedFlashcard = errors.New("malformed flashcard record")

// Validate checks a card loaded from storage before it reaches business logic.
func (f *Flashcard) Validate() error {
	switch {
	case f == nil:
		return ErrMalformedFlashcard
	case strings.TrimSpace(f.ID) == "", strings.TrimSpace(f.UserID) == "":
		return fmtMalformed(ErrMalformedFlashcard, "missing id or owner")
	case f.Schedule.EaseFactor < srs.MinEaseFactor:
		return fmtMalformed(ErrMalformedFlashcard, "ease factor below floor")
	case f.Schedule.Interval < 0, f.Schedule.Repetitions < 0:
		return fmtMalformed(ErrMalformedFlashcard, "negative interval or repetitions")
	}
	return nil
}

// FlashcardStats summarizes a user's deck.
type FlashcardStats struct {
	TotalFlashcards int `json:"totalFlashcards"`
	DueToday        int `json:"dueToday"`
	NewCards        int `json:"newCards"`
	LearningCards   int `json:"learningCards"`
	ReviewCards     int `json:"reviewCards"`
}
