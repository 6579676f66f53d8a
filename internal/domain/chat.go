package domain

import (
	"time"

	"gorm.io/datatypes"
)

type ChatMessage struct {
	Content   string    `json:"content"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

type QuestionChat struct {
	ID         string                           `gorm:"column:id;primaryKey" json:"id"`
	QuestionID string                           `gorm:"column:question_id;not null;index" json:"questionId"`
	UserID     string                           `gorm:"column:user_id;not null;index" json:"userId"`
	Messages   datatypes.JSONSlice[ChatMessage] `gorm:"column:messages" json:"messages"`
	CreatedAt  time.Time                        `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt  time.Time                        `gorm:"column:updated_at;not null;index" json:"updatedAt"`
}

func (QuestionChat) TableName() string { return "question_chats" }
