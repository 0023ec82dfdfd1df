// Package logger provides structured logging built on zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields. Context-aware
// methods pick up trace and request IDs so log lines correlate with
// spans and outbound requests.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("webclient")
//	log.Info("request sent", logger.Fields("method", "GET", "status", 200))
package logger
