package counters

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/carematch/carematch/internal/db"
	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/internal/events"
)

var testStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func openDB(t *testing.T, publisher events.Publisher) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "counters.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Setup(gdb, publisher))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func newMockClock() *clock.Mock {
	mock := clock.NewMock()
	mock.Set(testStart)
	return mock
}

func createJob(t *testing.T, gdb *gorm.DB, clientID string, status models.JobStatus, endsAt time.Time) *models.JobRequest {
	job := &models.JobRequest{ClientID: clientID, Status: status, ConfirmEndsAt: &endsAt}
	require.NoError(t, gdb.Create(job).Error)
	return job
}

func TestPendingConfirmationsExcludesExpiredNotifyingJob(t *testing.T) {
	gdb := openDB(t, nil)
	mock := newMockClock()
	q := NewQueries(gdb, mock)
	ctx := context.Background()

	expired := createJob(t, gdb, "client", models.JobStatusNotifying, testStart.Add(-time.Second))
	open := createJob(t, gdb, "client", models.JobStatusNotifying, testStart.Add(90*time.Second))
	for _, jobID := range []string{expired.ID, open.ID} {
		require.NoError(t, gdb.Create(&models.JobConfirmation{
			JobID:        jobID,
			FreelancerID: "nanny",
			Status:       models.ConfirmationAvailable,
		}).Error)
	}

	n, err := q.PendingConfirmations(ctx, "client", models.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mock.Add(90 * time.Second)
	n, err = q.PendingConfirmations(ctx, "client", models.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPendingConfirmationsForFreelancer(t *testing.T) {
	gdb := openDB(t, nil)
	mock := newMockClock()
	q := NewQueries(gdb, mock)
	ctx := context.Background()

	a := createJob(t, gdb, "client", models.JobStatusNotifying, testStart.Add(time.Minute))
	b := createJob(t, gdb, "client", models.JobStatusNotifying, testStart.Add(2*time.Minute))
	locked := createJob(t, gdb, "client", models.JobStatusLocked, testStart.Add(time.Minute))
	for _, jobID := range []string{a.ID, b.ID, locked.ID} {
		require.NoError(t, gdb.Create(&models.JobCandidateNotification{
			JobID:        jobID,
			FreelancerID: "nanny",
			Kind:         models.NotificationNewJob,
		}).Error)
	}

	n, err := q.PendingConfirmations(ctx, "nanny", models.RoleFreelancer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, gdb.Create(&models.JobConfirmation{
		JobID:        a.ID,
		FreelancerID: "nanny",
		Status:       models.ConfirmationAvailable,
	}).Error)
	n, err = q.PendingConfirmations(ctx, "nanny", models.RoleFreelancer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mock.Add(2 * time.Minute)
	n, err = q.PendingConfirmations(ctx, "nanny", models.RoleFreelancer)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = q.PendingConfirmations(ctx, "nanny", "admin")
	assert.Error(t, err)
}

func TestUnreadMessagesAndScheduleChanges(t *testing.T) {
	gdb := openDB(t, nil)
	q := NewQueries(gdb, newMockClock())
	ctx := context.Background()

	conv := &models.Conversation{JobID: "job", ClientID: "client", FreelancerID: "nanny"}
	require.NoError(t, gdb.Create(conv).Error)
	require.NoError(t, gdb.Create(&models.Message{ConversationID: conv.ID, SenderID: "nanny", Body: "hello"}).Error)
	require.NoError(t, gdb.Create(&models.JobCandidateNotification{
		JobID:        "job",
		FreelancerID: "nanny",
		Kind:         models.NotificationScheduleChange,
	}).Error)

	n, err := q.UnreadMessages(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = q.UnreadMessages(ctx, "nanny")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = q.ScheduleChanges(ctx, "nanny")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
