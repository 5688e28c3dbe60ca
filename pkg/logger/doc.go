// Package logger provides a structured logging interface for the feed client.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger by injection and tests can substitute a TestLogger that records what
// was logged.
//
//	log := logger.GetLogger().WithField("component", "paginator")
//	log.DebugWithFields("page fetched", map[string]interface{}{
//	    "items":  12,
//	    "cursor": "QVFE...",
//	})
package logger
