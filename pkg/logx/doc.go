// Package logx wraps zerolog behind a small, swappable logging service.
//
// Components receive a value-type Logger; the Service owns the sinks
// (console, file, stream chat) and can re-apply configuration at runtime
// without invalidating loggers already handed out.
package logx
