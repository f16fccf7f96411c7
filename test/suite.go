package test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/carematch/carematch/internal/auth"
	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/internal/db/repos"
	"github.com/carematch/carematch/internal/events"
	"github.com/carematch/carematch/internal/services"
	"github.com/carematch/carematch/pkg/api/v1/client"
)

const (
	// DefaultTestTimeout is the default timeout for test suites
	DefaultTestTimeout = 30 * time.Second
	// JWTSecret signs the tokens of the suite's users
	JWTSecret = "integration-secret"
	// ConfirmWindow is the confirmation window of the suite's matching service
	ConfirmWindow = 90 * time.Second
)

// Start is the mock clock's initial time
var Start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// Suite encapsulates all components needed for integration testing
type Suite struct {
	t *testing.T

	// Server components
	App      *fiber.App
	BaseURL  string
	Matching *services.Matching

	// Database components
	DB            *gorm.DB
	Feed          *events.Feed
	Profiles      *repos.ProfileRepository
	Jobs          *repos.JobRequestRepository
	Confirmations *repos.ConfirmationRepository
	Conversations *repos.ConversationRepository
	Notifications *repos.NotificationRepository

	// Clock drives deadlines on the server and in window controllers
	Clock *clock.Mock

	ctx        context.Context
	cancelFunc context.CancelFunc
	cleanups   []func()
}

// NewSuite creates a suite whose resources are released when the test ends
func NewSuite(t *testing.T) *Suite {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	mock := clock.NewMock()
	mock.Set(Start)

	suite := &Suite{
		t:          t,
		Clock:      mock,
		Feed:       events.NewFeed(),
		ctx:        ctx,
		cancelFunc: cancel,
	}
	t.Cleanup(suite.Cleanup)

	suite.Feed.Start(ctx)
	SetupTestDB(suite, suite.Feed)

	suite.Profiles = repos.NewProfileRepository(suite.DB)
	suite.Jobs = repos.NewJobRequestRepository(suite.DB)
	suite.Confirmations = repos.NewConfirmationRepository(suite.DB)
	suite.Conversations = repos.NewConversationRepository(suite.DB)
	suite.Notifications = repos.NewNotificationRepository(suite.DB)

	SetupServer(suite)
	return suite
}

func (s *Suite) addCleanup(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

// Cleanup cancels the suite context, then releases resources in reverse order of creation
func (s *Suite) Cleanup() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// Context returns the suite's context, which is cancelled when the suite is cleaned up
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Require returns a require.Assertions instance for this suite
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// NewClient returns an API client for the suite's server. An empty token gives a client without session.
func (s *Suite) NewClient(token string) client.Client {
	c, err := client.NewClient(&client.Options{
		BaseURL:     s.BaseURL,
		Timeout:     testClientTimeout,
		AccessToken: token,
	})
	s.Require().NoError(err, "Failed to create API client")
	return c
}

// Token signs a session token for userID
func (s *Suite) Token(userID string, role models.ProfileRole) string {
	token, err := auth.Sign(JWTSecret, userID, role, time.Hour)
	s.Require().NoError(err, "Failed to sign token")
	return token
}

// Client creates a client profile and an API client logged in as them
func (s *Suite) Client(name string) (*models.Profile, client.Client) {
	p := &models.Profile{Role: models.RoleClient, FullName: name}
	s.Require().NoError(s.Profiles.Create(s.ctx, p), "Failed to create client profile")
	return p, s.NewClient(s.Token(p.ID, models.RoleClient))
}

// Freelancer creates an available freelancer and an API client logged in as them
func (s *Suite) Freelancer(name string, hourlyRateCents int) (*models.Profile, client.Client) {
	p := &models.Profile{Role: models.RoleFreelancer, FullName: name}
	s.Require().NoError(s.Profiles.Create(s.ctx, p), "Failed to create freelancer profile")
	s.Require().NoError(s.Profiles.CreateFreelancer(s.ctx, &models.FreelancerProfile{
		ProfileID:       p.ID,
		HourlyRateCents: hourlyRateCents,
		IsAvailable:     true,
		Bio:             name + " bio",
	}), "Failed to create freelancer details")
	return p, s.NewClient(s.Token(p.ID, models.RoleFreelancer))
}

// Job creates a job request owned by clientID
func (s *Suite) Job(clientID string, status models.JobStatus) *models.JobRequest {
	job := &models.JobRequest{ClientID: clientID, Status: status}
	s.Require().NoError(s.Jobs.Create(s.ctx, job), "Failed to create job request")
	return job
}

// Retry retries a function until it succeeds or the number of retries is reached
func (s *Suite) Retry(fn func() error, retries int, interval time.Duration) (err error) {
	for i := 0; i < retries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		time.Sleep(interval)
	}
	return
}
