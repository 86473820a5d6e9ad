// Package logger wraps zap with a process-wide sugared logger and context helpers.
//
// Services receive a context and log through it: ToContext/FromContext carry the
// logger, WithName and WithKV scope it, and the package-level functions
// (Info, InfoKV, Warn, ErrorKV, ...) write through whatever logger the context holds.
package logger
