// Package srs implements the SM-2 spaced-repetition update rule.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	InitialEaseFactor = 2.5
	MinEaseFactor     = 1.3
	MinQuality        = 0
	MaxQuality        = 5
	// Reviews with quality below PassQuality reset the card.
	PassQuality = 3
	// Cards with fewer successful repetitions than this are still being learned.
	LearningRepetitions = 3
)

var ErrInvalidQuality = errors.New("quality must be an integer between 0 and 5")

// Schedule is the review state carried by every flashcard.
type Schedule struct {
	EaseFactor  float64    `gorm:"column:ease_factor;not null;default:2.5" json:"easeFactor"`
	Interval    int        `gorm:"column:interval_days;not null;default:0" json:"interval"`
	Repetitions int        `gorm:"column:repetitions;not null;default:0" json:"repetitions"`
	NextReview  time.Time  `gorm:"column:next_review;not null;index" json:"nextReview"`
	LastReview  *time.Time `gorm:"column:last_review" json:"lastReview"`
}

// NewSchedule returns the state of a card that has never been reviewed. It is due immediately.
func NewSchedule(now time.Time) Schedule {
	return Schedule{
		EaseFactor: InitialEaseFactor,
		NextReview: now,
	}
}

// Grade applies one review of the given quality at now and returns the updated schedule.
// The input is not modified.
func Grade(s Schedule, quality int, now time.Time) (Schedule, error) {
	if quality < MinQuality || quality > MaxQuality {
		return s, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}
	out := s

	if quality < PassQuality {
		out.Repetitions = 0
		out.Interval = 1
	} else {
		switch s.Repetitions {
		case 0:
			out.Interval = 1
		case 1:
			out.Interval = 6
		default:
			out.Interval = int(math.Round(float64(s.Interval) * s.EaseFactor))
		}
		if out.Interval < 1 {
			out.Interval = 1
		}
		out.Repetitions = s.Repetitions + 1
	}

	q := float64(MaxQuality - quality)
	out.EaseFactor = s.EaseFactor + (0.1 - q*(0.08+q*0.02))
	if out.EaseFactor < MinEaseFactor {
		out.EaseFactor = MinEaseFactor
	}

	reviewed := now
	out.LastReview = &reviewed
	out.NextReview = now.Add(time.Duration(out.Interval) * 24 * time.Hour)
	return out, nil
}

func (s Schedule) IsNew() bool { return s.Repetitions == 0 }

func (s Schedule) IsLearning() bool { return s.Repetitions < LearningRepetitions }

func (s Schedule) IsReview() bool { return s.Repetitions >= LearningRepetitions }

func (s Schedule) IsDue(now time.Time) bool { return !s.NextReview.After(now) }
