package services

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking_server/apperrors"
	"matchmaking_server/models"
)

func TestSend_ChatEnabledStatuses(t *testing.T) {
	f := newFixture(t)

	for _, status := range models.AllStatuses() {
		t.Run(string(status), func(t *testing.T) {
			m := f.inStatus(t, status)

			for _, mgr := range []string{managerA, managerB} {
				msg, err := f.chat.Send(f.ctx, as(mgr), m.MatchID, "a note from "+mgr)
				if status.ChatEnabled() {
					require.NoError(t, err)
					assert.Equal(t, mgr, msg.SenderID)
				} else {
					assert.ErrorIs(t, err, apperrors.ErrChatClosed)
				}
			}
		})
	}
	assert.Equal(t, 6.0, testutil.ToFloat64(f.metrics.ChatMessages.WithLabelValues(string(apperrors.CodeChatClosed))))
}

func TestSend_Rejections(t *testing.T) {
	f := newFixture(t)
	m := f.propose(t)

	_, err := f.chat.Send(f.ctx, as(managerA), m.MatchID, " \n\t ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)

	_, err = f.chat.Send(f.ctx, as(stranger), m.MatchID, "hi")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.chat.Send(f.ctx, as(managerA), "missing", "hi")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.chat.Send(f.ctx, as(managerA), m.MatchID, strings.Repeat("x", MaxChatMessageLength+1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestOpenThread_OrdersMessagesAndMarksViewed(t *testing.T) {
	f := newFixture(t)
	m := f.propose(t)

	first := f.send(t, managerA, m.MatchID, "first")
	second := f.send(t, managerA, m.MatchID, "  second  ")

	thread, err := f.chat.OpenThread(f.ctx, as(managerA), m.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnread, thread.Match.Status, "the proposer opening does not count as viewing")

	thread, err = f.chat.OpenThread(f.ctx, as(managerB), m.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, thread.Match.Status)
	assert.True(t, thread.ChatOpen)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, first.MessageID, thread.Messages[0].MessageID)
	assert.Equal(t, second.MessageID, thread.Messages[1].MessageID)
	assert.Equal(t, "second", thread.Messages[1].Content)

	require.NotNil(t, thread.FromClient)
	require.NotNil(t, thread.ToClient)
	assert.Equal(t, m.FromClientID, thread.FromClient.ClientID)
	assert.Equal(t, managerB, thread.ToClient.ManagerID)

	_, err = f.chat.OpenThread(f.ctx, as(stranger), m.MatchID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestOpenThread_ResetsUnreadForViewerOnly(t *testing.T) {
	f := newFixture(t)
	m := f.propose(t)
	f.send(t, managerA, m.MatchID, "one")
	f.send(t, managerA, m.MatchID, "two")
	f.send(t, managerB, m.MatchID, "reply")

	unread := func(viewer string) int {
		counts, err := unreadCounts(f.ctx, f.store, viewer, []string{m.MatchID})
		require.NoError(t, err)
		return counts[m.MatchID]
	}
	assert.Equal(t, 2, unread(managerB))
	assert.Equal(t, 1, unread(managerA))

	_, err := f.chat.OpenThread(f.ctx, as(managerB), m.MatchID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread(managerB))
	assert.Equal(t, 1, unread(managerA))

	f.send(t, managerA, m.MatchID, "three")
	assert.Equal(t, 1, unread(managerB), "only messages after the watermark count")
}

func TestOpenThread_ClosedMatchIsReadOnly(t *testing.T) {
	f := newFixture(t)
	m := f.propose(t)
	f.send(t, managerA, m.MatchID, "hi")
	_, err := f.matches.Respond(f.ctx, as(managerB), m.MatchID, false)
	require.NoError(t, err)

	thread, err := f.chat.OpenThread(f.ctx, as(managerB), m.MatchID)
	require.NoError(t, err)
	assert.False(t, thread.ChatOpen)
	assert.Len(t, thread.Messages, 1, "history stays readable")
}

func TestConcurrentSendAndCancel_MessageNeverLandsAfterClose(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 10; i++ {
		m := f.inStatus(t, models.StatusPending)
		f.send(t, managerB, m.MatchID, "before")

		var (
			wg               sync.WaitGroup
			sendErr, cancErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, sendErr = f.chat.Send(f.ctx, as(managerA), m.MatchID, "racing the cancel")
		}()
		go func() {
			defer wg.Done()
			_, cancErr = f.matches.Cancel(f.ctx, as(managerA), m.MatchID)
		}()
		wg.Wait()

		require.NoError(t, cancErr)
		assert.Equal(t, models.StatusCanceled, f.reload(t, m.MatchID).Status)

		thread, err := f.store.ListThread(f.ctx, m.MatchID)
		require.NoError(t, err)
		if sendErr == nil {
			require.Len(t, thread, 2)
			assert.Equal(t, "racing the cancel", thread[1].Content)
		} else {
			assert.ErrorIs(t, sendErr, apperrors.ErrChatClosed)
			require.Len(t, thread, 1, "a rejected send stores nothing")
		}

		_, err = f.chat.Send(f.ctx, as(managerA), m.MatchID, "after")
		assert.ErrorIs(t, err, apperrors.ErrChatClosed)
	}
}
