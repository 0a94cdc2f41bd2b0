// Package logger builds the zap loggers used across the service.
//
// Components never create their own logger: a *zap.Logger built here is
// passed down explicitly, and tests pass zap.NewNop() or an observer core.
//
// # HTTP
//
// WithRayID tags a logger with the request ray id stored by the rayid
// middleware. Requests logs one line per request carrying that id.
//
// # Usage
//
//	log, err := logger.New(&cfg.Log)
//	app.Use(rayid.New(), logger.Requests(log))
package logger
