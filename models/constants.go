package models

// ✅ Match statuses (single authoritative field, no parallel flags)
const (
	StatusUnread          MatchStatus = "UNREAD"
	StatusPending         MatchStatus = "PENDING"
	StatusAccepted        MatchStatus = "ACCEPTED"
	StatusRejected        MatchStatus = "REJECTED"
	StatusCanceled        MatchStatus = "CANCELED"
	StatusMatched         MatchStatus = "MATCHED"
	StatusDeactivatedUser MatchStatus = "DEACTIVATED_USER"
)

// ✅ Manager-facing list views
const (
	ViewReceived View = "received"
	ViewSent     View = "sent"
	ViewMatched  View = "matched"
)

// ✅ DynamoDB table names (prefixed at runtime by config)
const (
	MatchesTable     = "Matches"
	MessagesTable    = "MatchMessages"
	ReadMarkersTable = "MatchReadMarkers"
	ReviewsTable     = "Reviews"
	ClientsTable     = "Clients"
)

// ✅ DynamoDB global secondary indexes on the Matches table
const (
	ProposingManagerIndex  = "proposingManagerId-createdAt-index"
	RespondingManagerIndex = "respondingManagerId-createdAt-index"
	FromClientIndex        = "fromClientId-createdAt-index"
	ToClientIndex          = "toClientId-createdAt-index"
)

// ✅ DynamoDB global secondary index on the Clients table
const ClientsByManagerIndex = "managerId-index"

// SortKeyTimeLayout is fixed width so lexical order equals time order.
const SortKeyTimeLayout = "2006-01-02T15:04:05.000000000Z"
