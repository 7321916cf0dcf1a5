package models

// Page is one page of a list view. CurrentPage is 1-indexed.
type Page[T any] struct {
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	List        []T `json:"list"`
}

// AlarmCounts are the per-tab unread chat counters.
type AlarmCounts struct {
	ReceivedCount int `json:"receivedCount"`
	SentCount     int `json:"sentCount"`
	MatchedCount  int `json:"matchedCount"`
}
