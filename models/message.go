package models

import (
	"strings"
	"time"
)

// ChatMessage is one message in a match's thread. Messages are never edited
// or deleted.
type ChatMessage struct {
	MessageID string    `dynamodbav:"messageId" json:"messageId" gorm:"primaryKey;size:36"`
	MatchID   string    `dynamodbav:"matchId" json:"matchId" gorm:"size:36;not null;index:idx_messages_match_created,priority:1"`
	SenderID  string    `dynamodbav:"senderId" json:"senderId" gorm:"size:64;not null"`
	Content   string    `dynamodbav:"content" json:"content" gorm:"not null"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt" gorm:"not null;index:idx_messages_match_created,priority:2"`

	// SortKey is the DynamoDB range key: fixed-width createdAt then messageId.
	SortKey string `dynamodbav:"sortKey" json:"-" gorm:"-"`

	Match *Match `dynamodbav:"-" json:"-" gorm:"foreignKey:MatchID;references:MatchID"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// MessageSortKey orders messages by createdAt, ties broken by id.
func MessageSortKey(createdAt time.Time, messageID string) string {
	return createdAt.UTC().Format(SortKeyTimeLayout) + "#" + messageID
}

// After reports whether m is ordered strictly after the (at, id) position.
func (m *ChatMessage) After(at time.Time, id string) bool {
	if m.CreatedAt.Equal(at) {
		return strings.Compare(m.MessageID, id) > 0
	}
	return m.CreatedAt.After(at)
}

// ReadMarker is a viewer's watermark on one thread. It is only written as a
// side effect of opening the thread.
type ReadMarker struct {
	ManagerID     string    `dynamodbav:"managerId" json:"managerId" gorm:"primaryKey;size:64"`
	MatchID       string    `dynamodbav:"matchId" json:"matchId" gorm:"primaryKey;size:36"`
	SeenAt        time.Time `dynamodbav:"seenAt" json:"seenAt"`
	SeenMessageID string    `dynamodbav:"seenMessageId" json:"seenMessageId" gorm:"size:36"`

	// SeenKey is MessageSortKey(SeenAt, SeenMessageID), used for conditional
	// writes so a watermark never moves backwards.
	SeenKey string `dynamodbav:"seenKey" json:"-" gorm:"-"`
}

func (ReadMarker) TableName() string { return "read_markers" }

// ChatThread is the payload returned when a manager opens a chat.
type ChatThread struct {
	Match      *Match         `json:"match"`
	FromClient *ClientSummary `json:"fromClient,omitempty"`
	ToClient   *ClientSummary `json:"toClient,omitempty"`
	Messages   []ChatMessage  `json:"messages"`
	ChatOpen   bool           `json:"chatOpen"`
}

// CountUnread counts messages not sent by viewerID that sort after the
// watermark. A nil marker means the viewer never opened the thread.
func CountUnread(messages []ChatMessage, viewerID string, marker *ReadMarker) int {
	n := 0
	for i := range messages {
		msg := &messages[i]
		if msg.SenderID == viewerID {
			continue
		}
		if marker != nil && !msg.After(marker.SeenAt, marker.SeenMessageID) {
			continue
		}
		n++
	}
	return n
}
