package test

import (
	"fmt"
	"net"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/carematch/carematch/internal/auth"
	"github.com/carematch/carematch/internal/counters"
	"github.com/carematch/carematch/internal/logger"
	"github.com/carematch/carematch/internal/services"
	"github.com/carematch/carematch/pkg/api/v1/handlers"
	"github.com/carematch/carematch/pkg/api/v1/routes"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// SetupServer starts the API on a loopback listener. A real listener is used
// because the counters stream must be flushed while the response is open.
func SetupServer(suite *Suite) {
	suite.Matching = services.NewMatchingService(suite.DB, services.MatchingOptions{
		Publisher:     suite.Feed,
		Clock:         suite.Clock,
		ConfirmWindow: ConfirmWindow,
	})

	suite.App = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	suite.App.Use(logger.APILogger())

	routes.RegisterRoutes(suite.App,
		auth.NewVerifier(JWTSecret),
		handlers.NewJobHandler(suite.Matching),
		handlers.NewCounterHandler(suite.ctx, counters.NewQueries(suite.DB, suite.Clock), suite.Feed),
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	suite.Require().NoError(err, "Failed to listen")
	suite.BaseURL = fmt.Sprintf("http://%s", ln.Addr().String())

	go func() {
		if err := suite.App.Listener(ln); err != nil {
			logger.Debugf("Test server stopped: %v", err)
		}
	}()

	suite.addCleanup(func() {
		// streams end with the suite context, which is cancelled before this runs
		if err := suite.App.ShutdownWithTimeout(time.Second); err != nil {
			logger.Warnf("Test server shutdown: %v", err)
		}
	})
}
