// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps log/slog to provide:
//   - JSON, text and console output formats
//   - Redaction of credentials (DSN passwords, bearer tokens, API keys)
//   - Context-aware logging with request IDs
//   - RequestLog, the per-request log sink used by controllers
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//	if err != nil {
//	    return err
//	}
//
//	logger.Info("audit storage opened",
//	    "dsn", "app:hunter2@tcp(db:3306)/audit", // password redacted
//	)
//
// Components that take a *slog.Logger get logger.Slog(), which applies the
// same redaction.
//
// # Request logs
//
// A RequestLog collects informational notices while a request runs and
// writes them as one line when the request is torn down:
//
//	rl := logging.NewRequestLog(logger.Slog(), requestID)
//	rl.Notice("cache", "miss")
//	rl.Notice("rows", 12)
//	rl.AppendNoticeLog() // one "request notices" line with both fields
//
// Warning and Error lines are written immediately.
package logging
