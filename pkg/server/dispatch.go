package server

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/lifecycle/pkg/classify"
	"mercator-hq/lifecycle/pkg/controller"
	"mercator-hq/lifecycle/pkg/output"
	"mercator-hq/lifecycle/pkg/telemetry/logging"
	"mercator-hq/lifecycle/pkg/telemetry/tracing"
)

// httpHandler serves one route as a request-response exchange.
func (s *Server) httpHandler(route string, h controller.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.MaxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
		}

		ctx := r.Context()
		requestID := logging.GetRequestID(ctx)

		rc := controller.NewContext(requestID,
			logging.NewRequestLog(s.logger, requestID),
			output.NewHTTPOutput(w, s.renderer),
		)
		rc.Request = r

		if callback := r.URL.Query().Get("callback"); callback != "" {
			if output.ValidCallback(callback) {
				rc.Callback = callback
			} else {
				s.logger.WarnContext(ctx, "ignoring invalid JSONP callback",
					"request_id", requestID,
					"callback", callback,
				)
			}
		}

		_ = s.dispatch(ctx, rc, controller.KindRequestResponse, route, h)
	})
}

// dispatch runs h for rc inside a span covering the controller's whole
// lifecycle. The span records what the handler borrowed and how it failed.
func (s *Server) dispatch(ctx context.Context, rc *controller.Context, kind controller.RequestKind, route string, h controller.Handler) error {
	ctx = logging.WithRequestKind(ctx, kind.String())

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "dispatch "+route,
			tracing.NewAttributeBuilder().WithRequest(rc.RequestID, kind.String()).WithRoute(route).Build(),
		)
		defer span.End()
	}

	summary, err := s.dispatcher.Serve(ctx, rc, kind, h)

	if span != nil {
		tracing.SetBorrowedAttribute(span, summary.Borrowed)
		if err != nil {
			tracing.SetFailureAttributes(span, classify.Classify(err))
		}
	}
	if err != nil {
		s.logger.DebugContext(ctx, "request failed",
			"request_id", rc.RequestID,
			"route", route,
			"error", err,
		)
	}
	return err
}
