package models

import "time"

// MatchStatus is the lifecycle state of a proposal between two clients.
type MatchStatus string

// View names one of the three lists a manager browses.
type View string

// Match is one proposal between two clients. Rows are never deleted; a new
// proposal after a terminal state creates a new Match.
type Match struct {
	MatchID             string      `dynamodbav:"matchId" json:"matchId" gorm:"primaryKey;size:36"`
	FromClientID        string      `dynamodbav:"fromClientId" json:"fromClientId" gorm:"size:64;not null;index"`
	ToClientID          string      `dynamodbav:"toClientId" json:"toClientId" gorm:"size:64;not null;index"`
	ProposingManagerID  string      `dynamodbav:"proposingManagerId" json:"proposingManagerId" gorm:"size:64;not null;index:idx_matches_proposing,priority:1"`
	RespondingManagerID string      `dynamodbav:"respondingManagerId" json:"respondingManagerId" gorm:"size:64;not null;index:idx_matches_responding,priority:1"`
	Status              MatchStatus `dynamodbav:"status" json:"status" gorm:"size:20;not null;check:status IN ('UNREAD','PENDING','ACCEPTED','REJECTED','CANCELED','MATCHED','DEACTIVATED_USER')"`
	Message             string      `dynamodbav:"message,omitempty" json:"message,omitempty"`
	CreatedAt           time.Time   `dynamodbav:"createdAt" json:"createdAt" gorm:"not null;index:idx_matches_proposing,priority:2;index:idx_matches_responding,priority:2"`
	UpdatedAt           time.Time   `dynamodbav:"updatedAt" json:"updatedAt"`

	// ActiveKey is "from|to" while the match is non-terminal and NULL after,
	// so a unique index allows only one active proposal per ordered pair.
	ActiveKey *string `dynamodbav:"-" json:"-" gorm:"size:140;uniqueIndex"`
}

// TableName keeps the SQL table aligned with the DynamoDB one.
func (Match) TableName() string { return "matches" }

// PairKey identifies the ordered client pair of a proposal.
func PairKey(fromClientID, toClientID string) string {
	return fromClientID + "|" + toClientID
}

// transitions lists, for every target status, the statuses it may be reached from.
var transitions = map[MatchStatus][]MatchStatus{
	StatusPending:         {StatusUnread},
	StatusAccepted:        {StatusUnread, StatusPending},
	StatusRejected:        {StatusUnread, StatusPending},
	StatusCanceled:        {StatusUnread, StatusPending},
	StatusMatched:         {StatusAccepted},
	StatusDeactivatedUser: {StatusUnread, StatusPending, StatusAccepted},
}

// AllStatuses returns the seven statuses in lifecycle order.
func AllStatuses() []MatchStatus {
	return []MatchStatus{
		StatusUnread, StatusPending, StatusAccepted, StatusRejected,
		StatusCanceled, StatusMatched, StatusDeactivatedUser,
	}
}

// Valid reports whether s is one of the seven known statuses.
func (s MatchStatus) Valid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// SourcesOf returns the statuses from which `to` may be entered. The result
// is empty for UNREAD, which is only ever set at creation.
func SourcesOf(to MatchStatus) []MatchStatus {
	src := transitions[to]
	out := make([]MatchStatus, len(src))
	copy(out, src)
	return out
}

// CanTransition reports whether from→to is an edge of the lifecycle graph.
func CanTransition(from, to MatchStatus) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status transition is accepted.
func (s MatchStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCanceled, StatusMatched, StatusDeactivatedUser:
		return true
	}
	return false
}

// IsActive is the complement of IsTerminal for known statuses.
func (s MatchStatus) IsActive() bool {
	return s.Valid() && !s.IsTerminal()
}

// ChatEnabled reports whether messages may be appended in this status.
// UNREAD and PENDING are included so a courtesy note can accompany an
// unanswered proposal.
func (s MatchStatus) ChatEnabled() bool {
	switch s {
	case StatusUnread, StatusPending, StatusAccepted, StatusMatched:
		return true
	}
	return false
}

// ChatEnabledStatuses lists the statuses for which ChatEnabled is true.
func ChatEnabledStatuses() []MatchStatus {
	return []MatchStatus{StatusUnread, StatusPending, StatusAccepted, StatusMatched}
}

// ActiveStatuses lists the non-terminal statuses.
func ActiveStatuses() []MatchStatus {
	return []MatchStatus{StatusUnread, StatusPending, StatusAccepted}
}

// Valid reports whether v is one of the three list views.
func (v View) Valid() bool {
	return v == ViewReceived || v == ViewSent || v == ViewMatched
}

// InView is the visibility projection: a pure function of status and which
// side managerID is on. A manager owning both clients sees the match in both
// sent and received until it is matched.
func (m *Match) InView(managerID string, v View) bool {
	switch v {
	case ViewSent:
		return m.ProposingManagerID == managerID && m.Status != StatusMatched
	case ViewReceived:
		return m.RespondingManagerID == managerID && m.Status != StatusMatched
	case ViewMatched:
		return m.Status == StatusMatched && m.IsParticipant(managerID)
	}
	return false
}

// IsParticipant reports whether managerID owns either side of the match.
func (m *Match) IsParticipant(managerID string) bool {
	return managerID != "" && (m.ProposingManagerID == managerID || m.RespondingManagerID == managerID)
}

// HasClient reports whether clientID is either side of the match.
func (m *Match) HasClient(clientID string) bool {
	return m.FromClientID == clientID || m.ToClientID == clientID
}

// MatchWithClients is a list item: the match, both client summaries and the
// viewer's unread chat count.
type MatchWithClients struct {
	Match
	FromClient      *ClientSummary `json:"fromClient,omitempty"`
	ToClient        *ClientSummary `json:"toClient,omitempty"`
	UnreadChatCount int            `json:"unreadChatCount"`
}
