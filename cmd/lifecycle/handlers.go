package main

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"mercator-hq/lifecycle/pkg/controller"
	"mercator-hq/lifecycle/pkg/failure"
)

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 500
)

// registerHandlers mounts the built-in handlers. The status view is only
// served when templates are configured, and the audit feed only when the
// audit trail is enabled.
func (a *app) registerHandlers(views bool) error {
	routes := map[string]controller.Handler{
		"/echo":  a.echo,
		"/pools": a.poolStats,
	}
	if a.auditStore != nil {
		routes["/audit/recent"] = a.recentAudit
	}
	if views {
		routes["/status"] = a.status
	}

	for path, h := range routes {
		if err := a.server.Handle(path, h); err != nil {
			return err
		}
	}
	return nil
}

type echoRequest struct {
	Message string `json:"message"`
}

// echo answers with the message it was sent. The body is read into a
// borrowed buffer that goes back to its pool when the request ends.
func (a *app) echo(ctx context.Context, c *controller.Controller) error {
	rc := c.Context()
	if rc == nil {
		return controller.ErrNotActive
	}

	buf, _, err := controller.Borrow(c, a.buffers)
	if errors.Is(err, controller.ErrAborted) {
		return err
	}
	if err != nil {
		return failure.Infra("buffer pool unavailable", err)
	}

	payload := rc.Payload
	if rc.Request != nil {
		if _, err := buf.ReadFrom(rc.Request.Body); err != nil {
			return failure.Validation("request body could not be read").WithCause(err)
		}
		payload = buf.Bytes()
	}

	var req echoRequest
	if len(payload) == 0 || json.Unmarshal(payload, &req) != nil {
		return failure.Validation("body must be a JSON object")
	}
	if strings.TrimSpace(req.Message) == "" {
		return failure.Validation("message is required")
	}

	return c.OutputJSON(map[string]any{
		"message": req.Message,
		"length":  len(req.Message),
	}, "", failure.CodeOK)
}

func (a *app) poolStats(ctx context.Context, c *controller.Controller) error {
	return c.OutputJSON(map[string]any{"pools": a.pools.Stats()}, "", failure.CodeOK)
}

type auditRequest struct {
	Limit int `json:"limit"`
}

// recentAudit lists the newest audit records. The limit comes from the
// limit query parameter, or the limit field of a connection message.
func (a *app) recentAudit(ctx context.Context, c *controller.Controller) error {
	limit := defaultAuditLimit

	rc := c.Context()
	if rc == nil {
		return controller.ErrNotActive
	}
	switch {
	case rc.Request != nil:
		if s := rc.Request.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return failure.Validationf("invalid limit %q", s)
			}
			limit = n
		}
	case len(rc.Payload) > 0:
		var req auditRequest
		if err := json.Unmarshal(rc.Payload, &req); err != nil {
			return failure.Validation("body must be a JSON object")
		}
		if req.Limit != 0 {
			limit = req.Limit
		}
	}
	if limit < 1 || limit > maxAuditLimit {
		return failure.Validationf("limit must be between 1 and %d", maxAuditLimit)
	}

	records, err := a.auditStore.List(ctx, limit)
	if err != nil {
		return failure.Infra("audit storage unavailable", err)
	}
	return c.OutputJSON(map[string]any{"records": records}, "", failure.CodeOK)
}

// status renders the status.html view with pool statistics.
func (a *app) status(ctx context.Context, c *controller.Controller) error {
	return c.OutputView(map[string]any{
		"version": Version,
		"pools":   a.pools.Stats(),
	}, "status.html")
}
