package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/internal/events"
)

type recorder struct {
	mu      sync.Mutex
	changes []events.Change
}

func (r *recorder) Publish(c events.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) all() []events.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Change(nil), r.changes...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = nil
}

func openTestDB(t *testing.T, publisher events.Publisher) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "feed.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Setup(gdb, publisher))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func TestChangeFeedPublishesCommittedWrites(t *testing.T) {
	rec := &recorder{}
	gdb := openTestDB(t, rec)
	ctx := context.Background()

	msg := &models.Message{ConversationID: "c1", SenderID: "u1", Body: "hello"}
	require.NoError(t, gdb.WithContext(ctx).Create(msg).Error)

	changes := rec.all()
	require.Len(t, changes, 1)
	assert.Equal(t, models.TableMessages, changes[0].Table)
	assert.Equal(t, events.ChangeInsert, changes[0].Type)
	assert.Equal(t, msg.ID, changes[0].Row["id"])
	assert.Equal(t, "c1", changes[0].Row["conversation_id"])

	rec.reset()
	require.NoError(t, gdb.WithContext(ctx).Model(msg).Update("body", "edited").Error)
	changes = rec.all()
	require.Len(t, changes, 1)
	assert.Equal(t, events.ChangeUpdate, changes[0].Type)
	assert.Equal(t, "c1", changes[0].Row["conversation_id"])

	rec.reset()
	require.NoError(t, gdb.WithContext(ctx).Delete(msg).Error)
	changes = rec.all()
	require.Len(t, changes, 1)
	assert.Equal(t, events.ChangeDelete, changes[0].Type)
}

func TestChangeFeedStringifiesEnums(t *testing.T) {
	rec := &recorder{}
	gdb := openTestDB(t, rec)

	job := &models.JobRequest{ClientID: "client", Status: models.JobStatusNotifying}
	require.NoError(t, gdb.Create(job).Error)

	changes := rec.all()
	require.Len(t, changes, 1)
	assert.Equal(t, "notifying", changes[0].Row["status"])
	assert.Equal(t, "client", changes[0].Row["client_id"])
}

func TestChangeFeedSkipsExplicitTransactions(t *testing.T) {
	rec := &recorder{}
	gdb := openTestDB(t, rec)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models.Message{ConversationID: "c1", SenderID: "u1"}).Error
	})
	require.NoError(t, err)
	assert.Empty(t, rec.all())
}

func TestChangeFeedSkipsNoops(t *testing.T) {
	rec := &recorder{}
	gdb := openTestDB(t, rec)

	err := gdb.Model(&models.Message{}).Where("id = ?", "missing").Update("body", "x").Error
	require.NoError(t, err)
	assert.Empty(t, rec.all())
}

func TestStringify(t *testing.T) {
	s := "v"
	var nilString *string
	assert.Equal(t, "v", stringify(&s))
	assert.Equal(t, "", stringify(nilString))
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "42", stringify(42))
	assert.Equal(t, "locked", stringify(models.JobStatusLocked))
}

func TestChangeFeedOmitsUnknownColumnsOnUpdate(t *testing.T) {
	rec := &recorder{}
	gdb := openTestDB(t, rec)

	job := &models.JobRequest{ClientID: "client", Status: models.JobStatusNotifying}
	require.NoError(t, gdb.Create(job).Error)
	rec.reset()

	err := gdb.Model(&models.JobRequest{}).Where("id = ?", job.ID).Update("status", models.JobStatusLocked).Error
	require.NoError(t, err)

	changes := rec.all()
	require.Len(t, changes, 1)
	assert.Equal(t, "locked", changes[0].Row["status"])
	_, ok := changes[0].Row["client_id"]
	assert.False(t, ok, "an empty model must not report client_id")
}
