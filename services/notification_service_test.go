package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking_server/apperrors"
	"matchmaking_server/models"
)

func TestAlarmCounts_MatchUnreadMessagesPerView(t *testing.T) {
	f := newFixture(t)

	pending := f.propose(t)
	accepted := f.inStatus(t, models.StatusAccepted)
	matched := f.inStatus(t, models.StatusMatched)

	f.send(t, managerA, pending.MatchID, "p1")
	f.send(t, managerA, pending.MatchID, "p2")
	f.send(t, managerA, accepted.MatchID, "a1")
	f.send(t, managerB, accepted.MatchID, "a-reply")
	f.send(t, managerB, matched.MatchID, "m1")
	f.send(t, managerA, matched.MatchID, "m2")

	b, err := f.alarms.AlarmCounts(f.ctx, as(managerB))
	require.NoError(t, err)
	assert.Equal(t, models.AlarmCounts{ReceivedCount: 3, SentCount: 0, MatchedCount: 1}, *b)

	a, err := f.alarms.AlarmCounts(f.ctx, as(managerA))
	require.NoError(t, err)
	assert.Equal(t, models.AlarmCounts{ReceivedCount: 0, SentCount: 1, MatchedCount: 1}, *a)

	_, err = f.chat.OpenThread(f.ctx, as(managerB), pending.MatchID)
	require.NoError(t, err)
	b, err = f.alarms.AlarmCounts(f.ctx, as(managerB))
	require.NoError(t, err)
	assert.Equal(t, 1, b.ReceivedCount, "opening a thread clears only that thread")
	assert.Equal(t, 1, b.MatchedCount)
}

func TestAlarmCounts_ReceivedEqualsSumOverReceivedView(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 4; i++ {
		m := f.propose(t)
		ids = append(ids, m.MatchID)
		for j := 0; j <= i; j++ {
			f.send(t, managerA, m.MatchID, "ping")
		}
		f.send(t, managerB, m.MatchID, "pong")
	}
	_, err := f.chat.OpenThread(f.ctx, as(managerB), ids[3])
	require.NoError(t, err)
	f.send(t, managerA, ids[3], "after open")

	page, err := f.lists.List(f.ctx, as(managerB), models.ViewReceived, 1, MaxPageSize)
	require.NoError(t, err)
	sum := 0
	for _, item := range page.List {
		sum += item.UnreadChatCount
	}

	counts, err := f.alarms.AlarmCounts(f.ctx, as(managerB))
	require.NoError(t, err)
	assert.Equal(t, 1+2+3+1, counts.ReceivedCount)
	assert.Equal(t, sum, counts.ReceivedCount)
}

func TestAlarmCounts_SameManagerOnBothSides(t *testing.T) {
	f := newFixture(t)
	from, to := f.newPair(t, managerA, managerA)
	m, err := f.matches.Propose(f.ctx, as(managerA), from, to, "")
	require.NoError(t, err)
	f.send(t, managerA, m.MatchID, "x")

	counts, err := f.alarms.AlarmCounts(f.ctx, as(managerA))
	require.NoError(t, err)
	assert.Equal(t, 0, counts.ReceivedCount, "own messages never count")
}

func TestAlarmCounts_RequiresPrincipal(t *testing.T) {
	f := newFixture(t)
	_, err := f.alarms.AlarmCounts(f.ctx, as(""))
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
