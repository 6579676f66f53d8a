package domain

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Rating struct {
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

type Question struct {
	ID                string                      `gorm:"column:id;primaryKey" json:"id"`
	Text              string                      `gorm:"column:text;not null" json:"text"`
	Options           datatypes.JSONSlice[Option] `gorm:"column:options" json:"options"`
	CorrectAnswer     string                      `gorm:"column:correct_answer" json:"correctAnswer"`
	Explanation       string                      `gorm:"column:explanation" json:"explanation"`
	Subject           string                      `gorm:"column:subject;index" json:"subject"`
	UserID            string                      `gorm:"column:user_id;index" json:"userId"`
	Topic             string                      `gorm:"column:topic" json:"topic"`
	Difficulty        string                      `gorm:"column:difficulty" json:"difficulty"`
	Ratings           datatypes.JSONSlice[Rating] `gorm:"column:ratings" json:"ratings"`
	PossibleQuestions datatypes.JSONSlice[string] `gorm:"column:possible_questions" json:"possibleQuestions"`
	CreatedAt         time.Time                   `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
}

func (Question) TableName() string { return "questions" }

var ErrMalformedQuestion = errors.New("malformed question record")

func (q *Question) Validate() error {
	switch {
	case q == nil:
		return ErrMalformedQuestion
	case strings.TrimSpace(q.ID) == "":
		return fmtMalformed(ErrMalformedQuestion, "missing id")
	case strings.TrimSpace(q.Text) == "":
		return fmtMalformed(ErrMalformedQuestion, "missing text")
	}
	for _, o := range q.Options {
		if strings.TrimSpace(o.ID) == "" {
			return fmtMalformed(ErrMalformedQuestion, "option without id")
		}
	}
	return nil
}

// AverageRating returns the mean of all ratings, or 0 when there are none.
func (q *Question) AverageRating() float64 {
	if len(q.Ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range q.Ratings {
		sum += r.Rating
	}
	return float64(sum) / float64(len(q.Ratings))
}

// SetRating replaces userID's previous rating, if any.
func (q *Question) SetRating(userID string, rating int, now time.Time) {
	kept := make([]Rating, 0, len(q.Ratings)+1)
	for _, r := range q.Ratings {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	q.Ratings = append(kept, Rating{UserID: userID, Rating: rating, Timestamp: now})
}

// OptionsLine renders options as "a) ..., b) ..." for prompts.
func (q *Question) OptionsLine() string {
	parts := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		parts = append(parts, o.ID+") "+o.Text)
	}
	return strings.Join(parts, ", ")
}
