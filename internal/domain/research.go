package domain

import (
	"time"

	"gorm.io/datatypes"
)

type CardFace struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Research is written once, after every pipeline stage has succeeded.
type Research struct {
	ID         string                        `gorm:"column:id;primaryKey" json:"id"`
	UserID     string                        `gorm:"column:user_id;not null;index" json:"userId"`
	Topic      string                        `gorm:"column:topic;not null" json:"topic"`
	Content    string                        `gorm:"column:content" json:"content"`
	Flashcards datatypes.JSONSlice[CardFace] `gorm:"column:flashcards" json:"flashcards"`
	CreatedAt  time.Time                     `gorm:"column:created_at;not null;index" json:"createdAt"`
}

func (Research) TableName() string { return "researches" }
