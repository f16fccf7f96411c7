package routes

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetRoute(t *testing.T) {
	assert.Equal(t, "/health", GetRoute(HealthCheck))
	assert.Equal(t, "/api/counters", GetRoute(GetCounters))
	assert.Equal(t, "/api/jobs/:jobId/confirmed", GetRoute(GetConfirmed))
	assert.Empty(t, GetRoute("NoSuchRoute"))
}

func TestURLHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"health", HealthCheckURL(), "/health"},
		{"counters", GetCountersURL(), "/api/counters"},
		{"stream", StreamCountersURL(), "/api/realtime/counters"},
		{"confirmed", GetConfirmedURL("job-1"), "/api/jobs/job-1/confirmed"},
		{"confirm", ConfirmJobURL("job-1"), "/api/jobs/job-1/confirm"},
		{"decline", DeclineCandidateURL("job-1"), "/api/jobs/job-1/decline"},
		{"restart", RestartSearchURL("job-1"), "/api/jobs/job-1/restart"},
		{"select", SelectCandidateURL("job-1"), "/api/jobs/job-1/select"},
		{"escaped", GetConfirmedURL("a/b"), "/api/jobs/a%2Fb/confirmed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestBuildURLWithQuery(t *testing.T) {
	got := BuildURL(GetCounters, nil, url.Values{"role": []string{"client"}})
	assert.Equal(t, "/api/counters?role=client", got)
	assert.Empty(t, BuildURL("missing", nil, nil))
}
