package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/carematch/carematch/internal/types"
	"github.com/carematch/carematch/pkg/api/v1/handlers"
	"github.com/carematch/carematch/pkg/api/v1/routes"
)

// WatchCounters calls fn with the caller's counts every time the server pushes them.
// It blocks until ctx is done, the stream ends or fails.
func (c *APIClient) WatchCounters(ctx context.Context, fn func(types.Counts)) error {
	if c.accessToken == "" {
		return ErrNoSession
	}

	// net/http so that cancelling ctx also interrupts the endless body read
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+routes.StreamCountersURL(), nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set(fiber.HeaderAccept, "text/event-stream")
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return responseError(resp.StatusCode, body)
	}

	err = readEvents(resp.Body, func(event, data string) error {
		if event != handlers.CountsEvent {
			return nil
		}
		var counts types.Counts
		if err := json.Unmarshal([]byte(data), &counts); err != nil {
			return fmt.Errorf("error decoding counts: %w", err)
		}
		fn(counts)
		return nil
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// readEvents parses a server-sent event stream and calls fn once per dispatched event
func readEvents(r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	var event string
	var data []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				if event == "" {
					event = "message"
				}
				if err := fn(event, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
			// comment, used as keep-alive
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				event = value
			case "data":
				data = append(data, value)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading event stream: %w", err)
	}
	return io.ErrUnexpectedEOF
}
