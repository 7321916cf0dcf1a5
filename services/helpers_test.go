package services

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"matchmaking_server/auth"
	"matchmaking_server/models"
)

const (
	managerA = "mgr-a"
	managerB = "mgr-b"
	stranger = "mgr-z"
)

var (
	dbSeq      int64
	dbNameSafe = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// fakeClock advances one second per reading, so every stored timestamp is
// distinct and ordered.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	ctx     context.Context
	store   *SQLStore
	dir     *SQLDirectory
	clock   *fakeClock
	metrics *Metrics

	matches *MatchService
	chat    *ChatService
	alarms  *NotificationService
	lists   *ListService
	reviews *ReviewService

	clientSeq int
}

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	name := dbNameSafe.ReplaceAllString(t.Name(), "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbSeq, 1))
	store, err := OpenSQLite(dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := openTestStore(t)
	dir := NewSQLDirectory(store)
	clock := newFakeClock()
	metrics := NewMetrics(prometheus.NewRegistry())

	matches := NewMatchService(store, dir, metrics, log)
	matches.Now = clock.Now
	chat := NewChatService(store, dir, matches, metrics, log)
	chat.Now = clock.Now
	reviews := NewReviewService(store, matches, log)
	reviews.Now = clock.Now

	return &fixture{
		ctx:     context.Background(),
		store:   store,
		dir:     dir,
		clock:   clock,
		metrics: metrics,
		matches: matches,
		chat:    chat,
		alarms:  NewNotificationService(store, metrics, log),
		lists:   NewListService(store, dir, log),
		reviews: reviews,
	}
}

func as(managerID string) auth.Principal {
	return auth.Principal{ManagerID: managerID}
}

func (f *fixture) addClient(t *testing.T, clientID, managerID string) {
	t.Helper()
	require.NoError(t, f.dir.UpsertClient(f.ctx, &models.ClientSummary{
		ClientID:  clientID,
		ManagerID: managerID,
		Name:      "Client " + clientID,
		Job:       "engineer",
		Active:    true,
	}))
}

// newPair registers a fresh client for each manager and returns their ids.
func (f *fixture) newPair(t *testing.T, fromManager, toManager string) (string, string) {
	t.Helper()
	f.clientSeq++
	from := fmt.Sprintf("c%d-from", f.clientSeq)
	to := fmt.Sprintf("c%d-to", f.clientSeq)
	f.addClient(t, from, fromManager)
	f.addClient(t, to, toManager)
	return from, to
}

// propose creates a UNREAD match from managerA to managerB between fresh clients.
func (f *fixture) propose(t *testing.T) *models.Match {
	t.Helper()
	from, to := f.newPair(t, managerA, managerB)
	m, err := f.matches.Propose(f.ctx, as(managerA), from, to, "hello")
	require.NoError(t, err)
	return m
}

// inStatus drives a fresh match to status through the public operations.
func (f *fixture) inStatus(t *testing.T, status models.MatchStatus) *models.Match {
	t.Helper()
	m := f.propose(t)
	var err error
	switch status {
	case models.StatusUnread:
	case models.StatusPending:
		_, err = f.matches.MarkViewed(f.ctx, as(managerB), m.MatchID)
	case models.StatusAccepted:
		_, err = f.matches.Respond(f.ctx, as(managerB), m.MatchID, true)
	case models.StatusRejected:
		_, err = f.matches.Respond(f.ctx, as(managerB), m.MatchID, false)
	case models.StatusCanceled:
		_, err = f.matches.Cancel(f.ctx, as(managerA), m.MatchID)
	case models.StatusMatched:
		_, err = f.matches.Respond(f.ctx, as(managerB), m.MatchID, true)
		require.NoError(t, err)
		_, err = f.matches.ConfirmMatched(f.ctx, as(managerA), m.MatchID)
	case models.StatusDeactivatedUser:
		_, err = f.matches.DeactivateClient(f.ctx, m.ToClientID)
	}
	require.NoError(t, err)
	return f.reload(t, m.MatchID)
}

func (f *fixture) reload(t *testing.T, matchID string) *models.Match {
	t.Helper()
	m, err := f.store.GetMatch(f.ctx, matchID)
	require.NoError(t, err)
	return m
}

func (f *fixture) send(t *testing.T, managerID, matchID, content string) *models.ChatMessage {
	t.Helper()
	msg, err := f.chat.Send(f.ctx, as(managerID), matchID, content)
	require.NoError(t, err)
	return msg
}
