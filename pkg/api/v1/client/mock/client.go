// Package mock provides a function-field implementation of client.Client for tests
package mock

import (
	"context"
	"sync"

	"github.com/carematch/carematch/internal/types"
	"github.com/carematch/carematch/pkg/api/v1/client"
)

// MockClient implements the Client interface for testing
type MockClient struct {
	// Function fields that can be set to mock behavior
	HealthCheckFn       func(ctx context.Context) (map[string]string, error)
	GetConfirmedFn      func(ctx context.Context, jobID string) (types.ConfirmedResponse, error)
	SelectFreelancerFn  func(ctx context.Context, jobID, freelancerID string) (types.SelectResponse, error)
	DeclineFreelancerFn func(ctx context.Context, jobID, freelancerID string) error
	RestartSearchFn     func(ctx context.Context, jobID string) (types.RestartResponse, error)
	ConfirmJobFn        func(ctx context.Context, jobID string, req types.ConfirmRequest) error
	GetCountersFn       func(ctx context.Context) (types.Counts, error)
	WatchCountersFn     func(ctx context.Context, fn func(types.Counts)) error

	mu sync.Mutex

	// Call tracking for verification
	GetConfirmedCalls []string
	SelectCalls       []FreelancerCall
	DeclineCalls      []FreelancerCall
	RestartCalls      []string
	ConfirmCalls      []ConfirmCall
	GetCountersCalls  int
}

// FreelancerCall records a call naming a job and a freelancer
type FreelancerCall struct {
	JobID        string
	FreelancerID string
}

// ConfirmCall records a ConfirmJob call
type ConfirmCall struct {
	JobID string
	Req   types.ConfirmRequest
}

// Ensure MockClient implements Client interface
var _ client.Client = (*MockClient)(nil)

// HealthCheck mocks the HealthCheck method
func (m *MockClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	if m.HealthCheckFn != nil {
		return m.HealthCheckFn(ctx)
	}
	return map[string]string{"status": "healthy"}, nil
}

// GetConfirmed mocks the GetConfirmed method
func (m *MockClient) GetConfirmed(ctx context.Context, jobID string) (types.ConfirmedResponse, error) {
	m.mu.Lock()
	m.GetConfirmedCalls = append(m.GetConfirmedCalls, jobID)
	m.mu.Unlock()

	if m.GetConfirmedFn != nil {
		return m.GetConfirmedFn(ctx, jobID)
	}
	return types.ConfirmedResponse{Freelancers: []types.Candidate{}}, nil
}

// SelectFreelancer mocks the SelectFreelancer method
func (m *MockClient) SelectFreelancer(ctx context.Context, jobID, freelancerID string) (types.SelectResponse, error) {
	m.mu.Lock()
	m.SelectCalls = append(m.SelectCalls, FreelancerCall{JobID: jobID, FreelancerID: freelancerID})
	m.mu.Unlock()

	if m.SelectFreelancerFn != nil {
		return m.SelectFreelancerFn(ctx, jobID, freelancerID)
	}
	return types.SelectResponse{ConversationID: "conversation-1"}, nil
}

// DeclineFreelancer mocks the DeclineFreelancer method
func (m *MockClient) DeclineFreelancer(ctx context.Context, jobID, freelancerID string) error {
	m.mu.Lock()
	m.DeclineCalls = append(m.DeclineCalls, FreelancerCall{JobID: jobID, FreelancerID: freelancerID})
	m.mu.Unlock()

	if m.DeclineFreelancerFn != nil {
		return m.DeclineFreelancerFn(ctx, jobID, freelancerID)
	}
	return nil
}

// RestartSearch mocks the RestartSearch method
func (m *MockClient) RestartSearch(ctx context.Context, jobID string) (types.RestartResponse, error) {
	m.mu.Lock()
	m.RestartCalls = append(m.RestartCalls, jobID)
	m.mu.Unlock()

	if m.RestartSearchFn != nil {
		return m.RestartSearchFn(ctx, jobID)
	}
	return types.RestartResponse{JobID: jobID}, nil
}

// ConfirmJob mocks the ConfirmJob method
func (m *MockClient) ConfirmJob(ctx context.Context, jobID string, req types.ConfirmRequest) error {
	m.mu.Lock()
	m.ConfirmCalls = append(m.ConfirmCalls, ConfirmCall{JobID: jobID, Req: req})
	m.mu.Unlock()

	if m.ConfirmJobFn != nil {
		return m.ConfirmJobFn(ctx, jobID, req)
	}
	return nil
}

// GetCounters mocks the GetCounters method
func (m *MockClient) GetCounters(ctx context.Context) (types.Counts, error) {
	m.mu.Lock()
	m.GetCountersCalls++
	m.mu.Unlock()

	if m.GetCountersFn != nil {
		return m.GetCountersFn(ctx)
	}
	return types.Counts{}, nil
}

// WatchCounters mocks the WatchCounters method
func (m *MockClient) WatchCounters(ctx context.Context, fn func(types.Counts)) error {
	if m.WatchCountersFn != nil {
		return m.WatchCountersFn(ctx, fn)
	}
	<-ctx.Done()
	return ctx.Err()
}
