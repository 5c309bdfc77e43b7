package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Queries bundles the persistence operations of the chat service around a
// shared gorm client.
type Queries struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Queries {
	return &Queries{db: db}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Chat{}, &Message{}, &Setting{})
}

func withOrderedMessages(db *gorm.DB) *gorm.DB {
	return db.Order("message.sequence_order ASC")
}

// CreateChat inserts a chat with a fresh uuid.
func (q *Queries) CreateChat(ctx context.Context, title, model string) (*Chat, error) {
	chat := &Chat{Title: title, Model: model}
	chat.ID = uuid.NewString()
	if err := q.db.WithContext(ctx).Create(chat).Error; err != nil {
		return nil, errors.Wrap(err, "create chat")
	}
	return chat, nil
}

// GetChat loads a chat with its messages in sequence order. Returns
// gorm.ErrRecordNotFound when the id is unknown.
func (q *Queries) GetChat(ctx context.Context, id string) (*Chat, error) {
	var chat Chat
	err := q.db.WithContext(ctx).
		Preload("Messages", withOrderedMessages).
		First(&chat, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats returns every chat, most recently updated first, messages
// included so callers can search over them.
func (q *Queries) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	err := q.db.WithContext(ctx).
		Preload("Messages", withOrderedMessages).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, errors.Wrap(err, "list chats")
	}
	return chats, nil
}

// FindReusableChat returns the most recent chat with no messages, if any.
// Creating a new chat while one sits empty reuses it instead of piling up
// blanks.
func (q *Queries) FindReusableChat(ctx context.Context) (*Chat, error) {
	var chat Chat
	err := q.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM message WHERE message.chat_id = chat.id)").
		Order("created_at DESC").
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// UpdateChatTitle renames a chat. Returns gorm.ErrRecordNotFound when no row
// matched.
func (q *Queries) UpdateChatTitle(ctx context.Context, id, title string) error {
	res := q.db.WithContext(ctx).Model(&Chat{}).Where("id = ?", id).Update("title", title)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update chat title")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteChat removes a chat and its messages in one transaction. Returns
// gorm.ErrRecordNotFound when the id is unknown.
func (q *Queries) DeleteChat(ctx context.Context, id string) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&Message{}).Error; err != nil {
			return errors.Wrap(err, "delete chat messages")
		}
		res := tx.Where("id = ?", id).Delete(&Chat{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete chat")
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AddMessage appends a message at the next sequence position and bumps the
// chat's updated_at so it sorts to the top of the list.
func (q *Queries) AddMessage(ctx context.Context, chatID, role, content string) (*Message, error) {
	msg := &Message{ChatID: chatID, Role: role, Content: content}
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int
		err := tx.Model(&Message{}).
			Where("chat_id = ?", chatID).
			Select("COALESCE(MAX(sequence_order), -1) + 1").
			Scan(&next).Error
		if err != nil {
			return errors.Wrap(err, "next sequence")
		}
		msg.SequenceOrder = next
		if err := tx.Create(msg).Error; err != nil {
			return errors.Wrap(err, "create message")
		}
		return tx.Model(&Chat{}).Where("id = ?", chatID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateMessageContent overwrites a message body, used while an assistant
// response is still streaming in.
func (q *Queries) UpdateMessageContent(ctx context.Context, id int64, content string) error {
	return q.db.WithContext(ctx).Model(&Message{}).
		Where("id = ?", id).
		Update("content", content).Error
}

// DeleteEmptyChatsBefore removes chats that never received a message and were
// created before cutoff. Returns how many were reclaimed.
func (q *Queries) DeleteEmptyChatsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := q.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM message WHERE message.chat_id = chat.id)").
		Where("created_at < ?", cutoff).
		Delete(&Chat{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete empty chats")
	}
	return res.RowsAffected, nil
}

// GetSetting returns the stored value for key, or "" when unset.
func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	err := q.db.WithContext(ctx).First(&setting, "`key` = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "get setting")
	}
	return setting.Value, nil
}

// SetSetting upserts one setting row.
func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	setting := Setting{Key: key, Value: value}
	return q.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
}
