// Package routes defines the API routes and URL structure
package routes

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/carematch/carematch/internal/auth"
	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/pkg/api/v1/handlers"
)

/*

To keep this file organized, routes should be organized in the following way:

1. Smallest scope first (i.e. counter routes before job routes)
2. For similar scopes, put the endpoints in alphabetical order
3. Order routes in GET, POST, PUT, DELETE order.
	a. Within this ordering, param urls (ie /:jobId) should go last, otherwise fiber will interpret the route slug as that param.
	b. After param considerations, order alphabetically.
4. For clarity, naming should match the action (i.e. GetConfirmed, RestartSearch)

*/

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"
	// APIPrefix is the prefix for all authenticated API endpoints
	APIPrefix = "/api"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Route names for lookup
const (
	// Health check
	HealthCheck = "HealthCheck"

	// Counter routes
	GetCounters    = "GetCounters"
	StreamCounters = "StreamCounters"

	// Job routes
	GetConfirmed     = "GetConfirmed"
	ConfirmJob       = "ConfirmJob"
	DeclineCandidate = "DeclineCandidate"
	RestartSearch    = "RestartSearch"
	SelectCandidate  = "SelectCandidate"
)

// routeCache stores extracted routes for use prior to compilation
var (
	routeCache     map[string]string
	routeCacheMu   sync.RWMutex
	routeCacheInit sync.Once
)

// RegisterRoutes configures all the API routes. Every route under APIPrefix requires a bearer token.
func RegisterRoutes(
	app *fiber.App,
	verifier *auth.Verifier,
	jobHandler *handlers.JobHandler,
	counterHandler *handlers.CounterHandler,
) {
	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}).Name(HealthCheck)

	api := app.Group(APIPrefix, auth.Middleware(verifier))

	// Counter endpoints
	api.Get("/counters", counterHandler.GetCounters).Name(GetCounters)
	api.Get("/realtime/counters", counterHandler.StreamCounters).Name(StreamCounters)

	// Job endpoints
	clientOnly := auth.RequireRole(models.RoleClient)
	jobs := api.Group("/jobs")
	jobs.Get("/:jobId/confirmed", clientOnly, jobHandler.GetConfirmed).Name(GetConfirmed)
	jobs.Post("/:jobId/confirm", auth.RequireRole(models.RoleFreelancer), jobHandler.Confirm).Name(ConfirmJob)
	jobs.Post("/:jobId/decline", clientOnly, jobHandler.Decline).Name(DeclineCandidate)
	jobs.Post("/:jobId/restart", clientOnly, jobHandler.Restart).Name(RestartSearch)
	jobs.Post("/:jobId/select", clientOnly, jobHandler.Select).Name(SelectCandidate)
}

// initRouteCache initializes the route cache by creating a mock app and extracting routes
func initRouteCache() {
	routeCacheInit.Do(func() {
		routeCache = make(map[string]string)

		// Create a mock app
		app := fiber.New()

		// Register routes with empty handlers
		RegisterRoutes(app,
			auth.NewVerifier(""),
			&handlers.JobHandler{},
			handlers.NewCounterHandler(context.Background(), nil, nil),
		)

		// Extract routes from the app
		for _, route := range app.GetRoutes() {
			if route.Name != "" {
				routeCache[route.Name] = route.Path
			}
		}
	})
}

// GetRoute returns the route pattern for the given route name
func GetRoute(name string) string {
	initRouteCache()

	routeCacheMu.RLock()
	defer routeCacheMu.RUnlock()
	return routeCache[name]
}

// BuildURL builds a URL for the given route name and parameters
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	// Replace parameters in the route
	for param, value := range params {
		route = strings.ReplaceAll(route, ":"+param, url.PathEscape(value))
	}

	// Remove trailing slash if it's a base endpoint with no parameters
	if strings.HasSuffix(route, "/") && !strings.Contains(route, ":") {
		route = strings.TrimSuffix(route, "/")
	}

	// Add query parameters if any
	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// Counter route helpers

// GetCountersURL returns the URL for the caller's counts
func GetCountersURL() string {
	return BuildURL(GetCounters, nil, nil)
}

// StreamCountersURL returns the URL of the counters event stream
func StreamCountersURL() string {
	return BuildURL(StreamCounters, nil, nil)
}

// Job route helpers

func jobURL(route, jobID string) string {
	return BuildURL(route, map[string]string{"jobId": jobID}, nil)
}

// GetConfirmedURL returns the URL listing the confirmed candidates of a job
func GetConfirmedURL(jobID string) string {
	return jobURL(GetConfirmed, jobID)
}

// ConfirmJobURL returns the URL a freelancer posts an answer to
func ConfirmJobURL(jobID string) string {
	return jobURL(ConfirmJob, jobID)
}

// DeclineCandidateURL returns the URL declining a candidate of a job
func DeclineCandidateURL(jobID string) string {
	return jobURL(DeclineCandidate, jobID)
}

// RestartSearchURL returns the URL starting a new notification round
func RestartSearchURL(jobID string) string {
	return jobURL(RestartSearch, jobID)
}

// SelectCandidateURL returns the URL selecting a candidate of a job
func SelectCandidateURL(jobID string) string {
	return jobURL(SelectCandidate, jobID)
}
