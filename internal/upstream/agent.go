// Package upstream issues JSON requests to external collaborators with the
// fiber client agent.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d", e.URL, e.Status)
}

// Client carries settings shared by every request.
type Client struct {
	Timeout   time.Duration
	UserAgent string
}

// GetJSON fetches rawURL and decodes a 2xx JSON body into out.
func (c Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	agent := fiber.Get(rawURL)
	return c.do(ctx, agent, rawURL, headers, out)
}

// PostForm posts form as application/x-www-form-urlencoded and decodes a 2xx
// JSON body into out.
func (c Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string, out any) error {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	for key, values := range form {
		for _, v := range values {
			args.Add(key, v)
		}
	}

	agent := fiber.Post(rawURL).Form(args)
	return c.do(ctx, agent, rawURL, headers, out)
}

func (c Client) do(ctx context.Context, agent *fiber.Agent, rawURL string, headers map[string]string, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}

	timeout := c.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout > 0 {
		agent.Timeout(timeout)
	}
	if c.UserAgent != "" {
		agent.UserAgent(c.UserAgent)
	}
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		agent.Set(k, v)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request %s: %w", rawURL, errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return &StatusError{URL: rawURL, Status: status, Body: truncate(string(body), 256)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
