package models

import "time"

// Review is a free-text note a manager leaves about a client after a match.
// Append-only.
type Review struct {
	ReviewID  string    `dynamodbav:"reviewId" json:"reviewId" gorm:"primaryKey;size:36"`
	MatchID   string    `dynamodbav:"matchId" json:"matchId" gorm:"size:36;not null;index"`
	ClientID  string    `dynamodbav:"clientId" json:"clientId" gorm:"size:64;not null;index"`
	AuthorID  string    `dynamodbav:"authorId" json:"authorId" gorm:"size:64;not null"`
	Content   string    `dynamodbav:"content" json:"content" gorm:"not null"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt" gorm:"not null"`

	SortKey string `dynamodbav:"sortKey" json:"-" gorm:"-"`
}

func (Review) TableName() string { return "reviews" }
