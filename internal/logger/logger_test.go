package logger

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogLevel(t *testing.T) {
	defer log.SetLevel(logrus.InfoLevel)

	configureLogLevel("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	configureLogLevel("not-a-level")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	configureLogLevel("")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestAPILogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetFormatter(&logrus.JSONFormatter{})
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(APILogger())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusTeapot)
	}).Name("Ping")

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Request", entry["msg"])
	assert.Equal(t, "/ping", entry["path"])
	assert.Equal(t, "Ping", entry["handler"])
	assert.EqualValues(t, fiber.StatusTeapot, entry["status"])
}
