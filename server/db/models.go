package db

import (
	"time"

	"github.com/jklein/kleinchat/pkg/ormx"
)

// Chat is one conversation. Messages load in sequence order.
type Chat struct {
	ormx.UuidModel
	Title    string    `json:"title" gorm:"size:255;not null"`
	Model    string    `json:"model" gorm:"size:128;not null"`
	Messages []Message `json:"messages" gorm:"foreignKey:ChatID;references:ID"`
}

// Message is one turn inside a chat. SequenceOrder is dense per chat and
// unique, so history replays deterministically.
type Message struct {
	ormx.BaseModel
	ChatID        string `json:"chat_id" gorm:"size:36;not null;uniqueIndex:uk_chat_sequence,priority:1"`
	Role          string `json:"role" gorm:"size:16;not null"`
	Content       string `json:"content" gorm:"type:text;not null"`
	SequenceOrder int    `json:"sequence_order" gorm:"not null;uniqueIndex:uk_chat_sequence,priority:2"`
}

// Setting is a key-value row for user preferences.
type Setting struct {
	Key       string     `json:"key" gorm:"primaryKey;size:64"`
	Value     string     `json:"value" gorm:"type:text;not null"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"type:dateTime;autoUpdateTime"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	SettingCustomInstructions = "custom_instructions"
)

// Empty reports whether the chat has no messages yet.
func (c *Chat) Empty() bool {
	return len(c.Messages) == 0
}
