package counters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/internal/types"
)

func TestSetRequiresUser(t *testing.T) {
	feed := startFeed(t)
	gdb := openDB(t, feed)
	q := NewQueries(gdb, newMockClock())

	for _, s := range []*Set{
		NewSet(q, feed, "", models.RoleClient),
		NewSet(q, feed, "client", "admin"),
	} {
		assert.ErrorIs(t, s.Start(context.Background()), ErrNoUser)
		assert.Equal(t, types.Counts{}, s.Snapshot())
		s.Stop()
	}
}

func TestSetFollowsCommittedWrites(t *testing.T) {
	feed := startFeed(t)
	gdb := openDB(t, feed)
	mock := newMockClock()
	q := NewQueries(gdb, mock)

	conv := &models.Conversation{JobID: "job", ClientID: "client", FreelancerID: "nanny"}
	require.NoError(t, gdb.Create(conv).Error)

	s := NewSet(q, feed, "nanny", models.RoleFreelancer)
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, types.Counts{}, <-s.Updates())

	require.NoError(t, gdb.Create(&models.Message{ConversationID: conv.ID, SenderID: "client", Body: "hi"}).Error)
	job := createJob(t, gdb, "client", models.JobStatusNotifying, testStart.Add(time.Minute))
	require.NoError(t, gdb.Create(&models.JobCandidateNotification{
		JobID:        job.ID,
		FreelancerID: "nanny",
		Kind:         models.NotificationNewJob,
	}).Error)
	require.NoError(t, gdb.Create(&models.JobCandidateNotification{
		JobID:        job.ID,
		FreelancerID: "nanny",
		Kind:         models.NotificationScheduleChange,
	}).Error)

	want := types.Counts{UnreadMessages: 1, PendingConfirmations: 1, ScheduleChanges: 1}
	require.Eventually(t, func() bool { return s.Snapshot() == want }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, gdb.Model(&models.JobRequest{}).Where("id = ?", job.ID).
		Update("status", models.JobStatusConfirmationsClosed).Error)
	require.Eventually(t, func() bool { return s.Snapshot().PendingConfirmations == 0 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.Equal(t, types.Counts{}, s.Snapshot())
}
