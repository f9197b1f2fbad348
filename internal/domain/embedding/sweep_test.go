package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepPagesUntilShortPage(t *testing.T) {
	repo := newFakeRepo()
	repo.pending = makePending(250, func(int) string { return "ws-1" })
	pub := &fakePublisher{}

	res, err := NewSweeper(repo, pub, SweepOptions{BatchSize: 100, MaxMessagesPerRun: 1000}).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{100, 100, 100}, repo.pageLimits)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 250, res.Scanned)
	assert.Equal(t, 250, res.Processed)
	assert.Equal(t, 1, res.Workspaces)
	assert.Equal(t, 25, res.BatchesSent)
	assert.Zero(t, res.Failures)
	for _, b := range pub.batches {
		assert.LessOrEqual(t, len(b), QueueBatchLimit)
	}
}

func TestSweepStopsAtRunCap(t *testing.T) {
	repo := newFakeRepo()
	repo.pending = makePending(400, func(int) string { return "ws-1" })

	res, err := NewSweeper(repo, &fakePublisher{}, SweepOptions{BatchSize: 100, MaxMessagesPerRun: 250}).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{100, 100, 50}, repo.pageLimits)
	assert.Equal(t, 250, res.Scanned)
}

func TestSweepKeysetCursorDoesNotRepeatRows(t *testing.T) {
	repo := newFakeRepo()
	repo.pending = makePending(30, func(int) string { return "ws-1" })
	pub := &fakePublisher{}

	_, err := NewSweeper(repo, pub, SweepOptions{BatchSize: 7, MaxMessagesPerRun: 1000}).Sweep(context.Background())
	require.NoError(t, err)

	seen := map[string]int{}
	for _, b := range pub.batches {
		for _, m := range b {
			seen[m.ID]++
		}
	}
	assert.Len(t, seen, 30)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestSweepGroupsByWorkspaceAndSetsAttributes(t *testing.T) {
	repo := newFakeRepo()
	repo.pending = makePending(6, func(i int) string {
		if i%2 == 0 {
			return "ws-a"
		}
		return "ws-b"
	})
	conv := "dm-1"
	parent := "msg-0000"
	repo.pending[3].ChannelID = nil
	repo.pending[3].ConversationID = &conv
	repo.pending[5].ParentMessageID = &parent
	pub := &fakePublisher{}

	res, err := NewSweeper(repo, pub, SweepOptions{BatchSize: 100, MaxMessagesPerRun: 1000}).Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.batches, 1)
	assert.Equal(t, 2, res.Workspaces)

	var ids []string
	attrs := map[string]map[string]string{}
	for _, m := range pub.batches[0] {
		ids = append(ids, m.ID)
		attrs[m.ID] = m.Attributes
		assert.Equal(t, m.ID, m.Unit.MessageID)
	}
	assert.Equal(t, []string{"msg-0000", "msg-0002", "msg-0004", "msg-0001", "msg-0003", "msg-0005"}, ids)

	assert.Equal(t, "ws-a", attrs["msg-0000"][AttrWorkspaceID])
	assert.Equal(t, ScopeChannel, attrs["msg-0000"][AttrScope])
	assert.Equal(t, ScopeConversation, attrs["msg-0003"][AttrScope])
	assert.Equal(t, "false", attrs["msg-0001"][AttrIsThreadReply])
	assert.Equal(t, "true", attrs["msg-0005"][AttrIsThreadReply])
}

func TestSweepDropsEmptyMessagesAndClearsFlag(t *testing.T) {
	repo := newFakeRepo()
	repo.pending = makePending(4, func(int) string { return "ws-1" })
	repo.pending[1].Body = "   \n\t"
	blank := "  "
	repo.pending[2].Text = &blank
	pub := &fakePublisher{}

	res, err := NewSweeper(repo, pub, SweepOptions{BatchSize: 100, MaxMessagesPerRun: 1000}).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, res.Processed)
	assert.ElementsMatch(t, []string{"msg-0001", "msg-0002"}, repo.cleared)
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
}

func TestSweepIsolatesSubBatchFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.pending = makePending(25, func(int) string { return "ws-1" })
	pub := &fakePublisher{
		failOnce:  map[int]error{1: errors.New("throttled")},
		rejectIDs: map[string]bool{"msg-0012": true},
	}

	res, err := NewSweeper(repo, pub, SweepOptions{BatchSize: 100, MaxMessagesPerRun: 1000}).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.BatchesSent)
	assert.Equal(t, 11, res.Failures)
	assert.Equal(t, 14, res.Processed)
	assert.Contains(t, res.FailedMessageIDs, "msg-0012")
	assert.Contains(t, res.FailedMessageIDs, "msg-0000")
}

func TestSweepPropagatesStoreError(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("connection refused")

	_, err := NewSweeper(repo, &fakePublisher{}, SweepOptions{}).Sweep(context.Background())
	assert.Error(t, err)
}

func TestSweepNothingPending(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}

	res, err := NewSweeper(repo, pub, SweepOptions{BatchSize: 100, MaxMessagesPerRun: 1000}).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Zero(t, res.BatchesSent)
	assert.Empty(t, pub.batches)
}
