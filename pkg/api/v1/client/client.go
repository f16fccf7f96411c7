// Package client provides the API client for interacting with the carematch API
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/carematch/carematch/internal/types"
	"github.com/carematch/carematch/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// ErrNoSession is returned before any network call when no access token is configured
var ErrNoSession = errors.New("no active session: an access token is required")

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Job Endpoints
	GetConfirmed(ctx context.Context, jobID string) (types.ConfirmedResponse, error)
	SelectFreelancer(ctx context.Context, jobID, freelancerID string) (types.SelectResponse, error)
	DeclineFreelancer(ctx context.Context, jobID, freelancerID string) error
	RestartSearch(ctx context.Context, jobID string) (types.RestartResponse, error)
	ConfirmJob(ctx context.Context, jobID string, req types.ConfirmRequest) error

	// Counter Endpoints
	GetCounters(ctx context.Context) (types.Counts, error)
	WatchCounters(ctx context.Context, fn func(types.Counts)) error
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration

	// AccessToken is the bearer token of the current session
	AccessToken string
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL     string
	timeout     time.Duration
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL: unsupported scheme %q", u.Scheme)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL:     opts.BaseURL,
		timeout:     timeout,
		accessToken: opts.AccessToken,
		httpClient:  &http.Client{},
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	// Resolve the endpoint URL
	fullURL := c.baseURL + endpoint

	// Create a new agent based on the HTTP method
	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	// Set common headers
	agent.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.accessToken != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.accessToken)
	}

	// Add body if provided
	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and processes the response
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	// Execute the request
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	// Check for non-success status codes
	if statusCode < 200 || statusCode >= 300 {
		return responseError(statusCode, body)
	}

	// Decode the response body if a target is provided
	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// responseError surfaces the server's error message verbatim, or the raw body when it is not an ErrorResponse
func responseError(statusCode int, body []byte) error {
	var errResp types.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &fiber.Error{Code: statusCode, Message: errResp.Error}
	}
	return &fiber.Error{Code: statusCode, Message: string(body)}
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	return c.doRequest(agent, response)
}

// executeAuthenticated is executeRequest for routes that need a session
func (c *APIClient) executeAuthenticated(ctx context.Context, method, endpoint string, body, response interface{}) error {
	if c.accessToken == "" {
		return ErrNoSession
	}
	return c.executeRequest(ctx, method, endpoint, body, response)
}

// HealthCheck checks the API health
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	var response map[string]string
	if err := c.executeRequest(ctx, http.MethodGet, routes.HealthCheckURL(), nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// GetConfirmed lists the candidates who confirmed availability for a job
func (c *APIClient) GetConfirmed(ctx context.Context, jobID string) (types.ConfirmedResponse, error) {
	var response types.ConfirmedResponse
	err := c.executeAuthenticated(ctx, http.MethodGet, routes.GetConfirmedURL(jobID), nil, &response)
	return response, err
}

// SelectFreelancer locks the job to a candidate and returns the opened conversation
func (c *APIClient) SelectFreelancer(ctx context.Context, jobID, freelancerID string) (types.SelectResponse, error) {
	var response types.SelectResponse
	req := types.FreelancerRequest{FreelancerID: freelancerID}
	err := c.executeAuthenticated(ctx, http.MethodPost, routes.SelectCandidateURL(jobID), req, &response)
	return response, err
}

// DeclineFreelancer removes a candidate from the job
func (c *APIClient) DeclineFreelancer(ctx context.Context, jobID, freelancerID string) error {
	req := types.FreelancerRequest{FreelancerID: freelancerID}
	return c.executeAuthenticated(ctx, http.MethodPost, routes.DeclineCandidateURL(jobID), req, nil)
}

// RestartSearch starts a new notification round for the job
func (c *APIClient) RestartSearch(ctx context.Context, jobID string) (types.RestartResponse, error) {
	var response types.RestartResponse
	err := c.executeAuthenticated(ctx, http.MethodPost, routes.RestartSearchURL(jobID), nil, &response)
	return response, err
}

// ConfirmJob records the caller's availability for a job
func (c *APIClient) ConfirmJob(ctx context.Context, jobID string, req types.ConfirmRequest) error {
	return c.executeAuthenticated(ctx, http.MethodPost, routes.ConfirmJobURL(jobID), req, nil)
}

// GetCounters returns the caller's aggregate counts
func (c *APIClient) GetCounters(ctx context.Context) (types.Counts, error) {
	var response types.Counts
	err := c.executeAuthenticated(ctx, http.MethodGet, routes.GetCountersURL(), nil, &response)
	return response, err
}

// IsUnauthorized reports whether err means the session is missing or was rejected
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrNoSession) {
		return true
	}
	var fiberErr *fiber.Error
	return errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusUnauthorized
}

// IsRetryable reports whether repeating the call may succeed: network failures,
// server errors, timeouts and rate limiting
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrNoSession) || errors.Is(err, context.Canceled) {
		return false
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code >= 500 ||
			fiberErr.Code == fiber.StatusRequestTimeout ||
			fiberErr.Code == fiber.StatusTooManyRequests
	}
	return true
}
