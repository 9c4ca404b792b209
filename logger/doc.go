// Package logger provides structured logging for gfnkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("gfn")
//	log.Info("merge finished", logger.Fields("stages", 3))
package logger
