package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carematch/carematch/internal/constants"
	"github.com/carematch/carematch/internal/types"
	"github.com/carematch/carematch/pkg/api/v1/client"
	"github.com/carematch/carematch/pkg/api/v1/client/mock"
	"github.com/carematch/carematch/pkg/api/v1/routes"
)

// setupTestCommand returns a fresh command tree whose client is a mock.
// The options the client would have been built with are captured.
func setupTestCommand(t *testing.T) (*mock.MockClient, *client.Options, func(args ...string) (string, error)) {
	mockClient := &mock.MockClient{}
	captured := &client.Options{}

	originalNewClient := newClient
	t.Cleanup(func() {
		newClient = originalNewClient
		apiClient = nil
	})
	newClient = func(opts *client.Options) (client.Client, error) {
		*captured = *opts
		return mockClient, nil
	}

	run := func(args ...string) (string, error) {
		out := &bytes.Buffer{}
		cmd := NewRootCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}
	return mockClient, captured, run
}

func TestRootFlagPrecedence(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv(constants.EnvServerAddress, "")
		t.Setenv(constants.EnvAccessToken, "")
		_, opts, run := setupTestCommand(t)

		_, err := run("counters", "get")
		require.NoError(t, err)
		assert.Equal(t, routes.DefaultBaseURL, opts.BaseURL)
		assert.Empty(t, opts.AccessToken)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(constants.EnvServerAddress, "http://env.example:9000")
		t.Setenv(constants.EnvAccessToken, "env-token")
		_, opts, run := setupTestCommand(t)

		_, err := run("counters", "get")
		require.NoError(t, err)
		assert.Equal(t, "http://env.example:9000", opts.BaseURL)
		assert.Equal(t, "env-token", opts.AccessToken)
	})

	t.Run("flags win", func(t *testing.T) {
		t.Setenv(constants.EnvServerAddress, "http://env.example:9000")
		t.Setenv(constants.EnvAccessToken, "env-token")
		_, opts, run := setupTestCommand(t)

		_, err := run("counters", "get", "-s", "http://flag.example", "-t", "flag-token")
		require.NoError(t, err)
		assert.Equal(t, "http://flag.example", opts.BaseURL)
		assert.Equal(t, "flag-token", opts.AccessToken)
	})
}

func TestConfirmedCommand(t *testing.T) {
	mockClient, _, run := setupTestCommand(t)
	deadline := time.Now().Add(time.Hour)
	mockClient.GetConfirmedFn = func(ctx context.Context, jobID string) (types.ConfirmedResponse, error) {
		assert.Equal(t, "job-1", jobID)
		return types.ConfirmedResponse{
			Freelancers: []types.Candidate{
				{FreelancerID: "direct", FullName: "Ken"},
				{FreelancerID: "open", FullName: "Ada", IsOpenJobAccepted: true},
			},
			ConfirmEndsAt: &deadline,
		}, nil
	}

	output, err := run("jobs", "confirmed", "-j", "job-1")
	require.NoError(t, err)
	assert.Contains(t, output, `"state": "open"`)
	require.Contains(t, output, `"freelancer_id": "open"`)
	require.Contains(t, output, `"freelancer_id": "direct"`)
	assert.Less(t, strings.Index(output, `"freelancer_id": "open"`), strings.Index(output, `"freelancer_id": "direct"`),
		"open job acceptances are listed first")

	_, err = run("jobs", "confirmed")
	assert.EqualError(t, err, `required flag(s) "job" not set`)
}

func TestSelectCommand(t *testing.T) {
	mockClient, _, run := setupTestCommand(t)

	output, err := run("jobs", "select", "-j", "job-1", "-f", "free-1")
	require.NoError(t, err)
	require.Len(t, mockClient.SelectCalls, 1)
	assert.Equal(t, mock.FreelancerCall{JobID: "job-1", FreelancerID: "free-1"}, mockClient.SelectCalls[0])
	assert.Contains(t, output, `"conversation_id": "conversation-1"`)

	_, err = run("jobs", "select", "-j", "job-1")
	assert.EqualError(t, err, `required flag(s) "freelancer" not set`)
}

func TestDeclineCommand(t *testing.T) {
	mockClient, _, run := setupTestCommand(t)
	mockClient.DeclineFreelancerFn = func(ctx context.Context, jobID, freelancerID string) error {
		if freelancerID == "gone" {
			return errors.New("candidate not found")
		}
		return nil
	}

	output, err := run("jobs", "decline", "-j", "job-1", "-f", "free-1")
	require.NoError(t, err)
	assert.Contains(t, output, `"declined": "free-1"`)

	_, err = run("jobs", "decline", "-j", "job-1", "-f", "gone")
	assert.ErrorContains(t, err, "candidate not found")
	assert.Len(t, mockClient.DeclineCalls, 2)
}

func TestRestartCommand(t *testing.T) {
	mockClient, _, run := setupTestCommand(t)
	mockClient.RestartSearchFn = func(ctx context.Context, jobID string) (types.RestartResponse, error) {
		return types.RestartResponse{JobID: jobID, NotificationsSent: 4}, nil
	}

	output, err := run("jobs", "restart", "-j", "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, mockClient.RestartCalls)
	assert.Contains(t, output, `"notifications_sent": 4`)
}

func TestConfirmCommand(t *testing.T) {
	mockClient, _, run := setupTestCommand(t)

	_, err := run("jobs", "confirm", "-j", "job-1", "--note", "free all week", "--open-job")
	require.NoError(t, err)
	require.Len(t, mockClient.ConfirmCalls, 1)
	call := mockClient.ConfirmCalls[0]
	assert.Equal(t, "job-1", call.JobID)
	require.NotNil(t, call.Req.Note)
	assert.Equal(t, "free all week", *call.Req.Note)
	assert.True(t, call.Req.IsOpenJobAccepted)

	_, err = run("jobs", "confirm", "-j", "job-2")
	require.NoError(t, err)
	require.Len(t, mockClient.ConfirmCalls, 2)
	assert.Nil(t, mockClient.ConfirmCalls[1].Req.Note)

	_, err = run("jobs", "confirm", "-j", "job-3", "--note", strings.Repeat("x", types.MaxNoteLength+1))
	assert.Error(t, err)
	assert.Len(t, mockClient.ConfirmCalls, 2, "invalid requests are not sent")
}

func TestWindowWatchCommand(t *testing.T) {
	mockClient, _, run := setupTestCommand(t)
	deadline := time.Now().Add(-time.Second)
	mockClient.GetConfirmedFn = func(ctx context.Context, jobID string) (types.ConfirmedResponse, error) {
		return types.ConfirmedResponse{
			Freelancers:   []types.Candidate{{FreelancerID: "free-1", FullName: "Ada", IsOpenJobAccepted: true}},
			ConfirmEndsAt: &deadline,
		}, nil
	}

	output, err := run("window", "watch", "-j", "job-1", "--exit-on-end")
	require.NoError(t, err)
	assert.Contains(t, output, "[ended] 0:00  1 candidate(s)")
	assert.Contains(t, output, "* free-1  Ada")

	mockClient.GetConfirmedFn = func(ctx context.Context, jobID string) (types.ConfirmedResponse, error) {
		return types.ConfirmedResponse{}, client.ErrNoSession
	}
	_, err = run("window", "watch", "-j", "job-1")
	assert.ErrorIs(t, err, client.ErrNoSession)
}

func TestCountersCommands(t *testing.T) {
	mockClient, _, run := setupTestCommand(t)
	mockClient.GetCountersFn = func(ctx context.Context) (types.Counts, error) {
		return types.Counts{UnreadMessages: 2, PendingConfirmations: 1}, nil
	}
	mockClient.WatchCountersFn = func(ctx context.Context, fn func(types.Counts)) error {
		fn(types.Counts{UnreadMessages: 1})
		fn(types.Counts{UnreadMessages: 1, ScheduleChanges: 3})
		return context.Canceled
	}

	output, err := run("counters", "get")
	require.NoError(t, err)
	assert.Contains(t, output, `"unread_messages": 2`)
	assert.Contains(t, output, `"pending_confirmations": 1`)

	output, err = run("counters", "watch")
	require.NoError(t, err)
	assert.Equal(t, "unread=1 pending=0 schedule=0\nunread=1 pending=0 schedule=3\n", output)

	mockClient.WatchCountersFn = func(ctx context.Context, fn func(types.Counts)) error {
		return client.ErrNoSession
	}
	_, err = run("counters", "watch")
	assert.ErrorIs(t, err, client.ErrNoSession)
}
