// errors.go: structured error codes and handler, mirroring the teacher's
// errors.go (agilira-iris): every error surfaced across the façade is a
// *errors.Error built through NewEngineError/WrapEngineError, carrying a
// severity, a component tag, a timestamp, and caller context.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/agilira/go-errors"
)

// Error codes for CNanoLog, grouped the way the teacher groups its own
// (configuration/lifecycle, registry, staging buffer, writer I/O).
const (
	ErrCodeInvalidConfig     errors.ErrorCode = "CNL_INVALID_CONFIG"
	ErrCodeInvalidLevel      errors.ErrorCode = "CNL_INVALID_LEVEL"
	ErrCodeAlreadyInit       errors.ErrorCode = "CNL_ALREADY_INITIALIZED"
	ErrCodeNotInitialized    errors.ErrorCode = "CNL_NOT_INITIALIZED"
	ErrCodeShutdownFailed    errors.ErrorCode = "CNL_SHUTDOWN_FAILED"
	ErrCodeRegistryOverflow  errors.ErrorCode = "CNL_REGISTRY_OVERFLOW"
	ErrCodeRegistryMismatch  errors.ErrorCode = "CNL_REGISTRY_MISMATCH"
	ErrCodeBufferOverflow    errors.ErrorCode = "CNL_BUFFER_OVERFLOW"
	ErrCodeBufferExhausted   errors.ErrorCode = "CNL_BUFFER_POOL_EXHAUSTED"
	ErrCodeEntryTooLarge     errors.ErrorCode = "CNL_ENTRY_TOO_LARGE"
	ErrCodeWriterIO          errors.ErrorCode = "CNL_WRITER_IO"
	ErrCodeWriterFailed      errors.ErrorCode = "CNL_WRITER_FAILED"
	ErrCodeRotationFailed    errors.ErrorCode = "CNL_ROTATION_FAILED"
	ErrCodeInvalidArgument   errors.ErrorCode = "CNL_INVALID_ARGUMENT"
)

// ErrorHandler receives every internally-handled error (drops, I/O
// failures, misuse) that does not otherwise have a synchronous return
// path to the caller — chiefly those raised from the background writer
// loop, matching the teacher's ErrorHandler pattern.
type ErrorHandler func(err *errors.Error)

var defaultErrorHandler ErrorHandler = func(err *errors.Error) {
	if err == nil {
		return
	}
	if err.Cause != nil {
		fmt.Fprintf(os.Stderr, "[CNANOLOG ERROR] %s: %s (cause: %v)\n", err.Code, err.Message, err.Cause)
		return
	}
	fmt.Fprintf(os.Stderr, "[CNANOLOG ERROR] %s: %s\n", err.Code, err.Message)
}

var currentErrorHandler = defaultErrorHandler

// SetErrorHandler installs a custom handler for internally-raised errors.
// Passing nil restores the default stderr handler.
func SetErrorHandler(handler ErrorHandler) {
	if handler == nil {
		currentErrorHandler = defaultErrorHandler
		return
	}
	currentErrorHandler = handler
}

// GetErrorHandler returns the currently installed error handler.
func GetErrorHandler() ErrorHandler {
	return currentErrorHandler
}

// handleError enriches err with runtime context and dispatches it to the
// installed handler.
func handleError(err *errors.Error) {
	if err == nil {
		return
	}
	err.WithContext("go_version", runtime.Version())
	err.WithContext("goroutines", runtime.NumGoroutine())
	currentErrorHandler(err)
}

// NewEngineError builds a *errors.Error carrying the standard severity,
// component, timestamp, and caller context the teacher attaches to every
// engine-raised error.
func NewEngineError(code errors.ErrorCode, message string) *errors.Error {
	e := errors.New(code, message).
		WithSeverity("error").
		WithContext("component", "cnanolog_engine").
		WithContext("timestamp", time.Now().UTC())

	if pc, file, line, ok := runtime.Caller(1); ok {
		e.WithContext("caller_file", file).WithContext("caller_line", line)
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.WithContext("caller_func", fn.Name())
		}
	}
	return e
}

// NewEngineErrorWithField is NewEngineError plus a single named field,
// mirroring the teacher's NewLoggerErrorWithField.
func NewEngineErrorWithField(code errors.ErrorCode, message, field, value string) *errors.Error {
	e := errors.NewWithField(code, message, field, value).
		WithSeverity("error").
		WithContext("component", "cnanolog_engine").
		WithContext("timestamp", time.Now().UTC())

	if pc, file, line, ok := runtime.Caller(1); ok {
		e.WithContext("caller_file", file).WithContext("caller_line", line)
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.WithContext("caller_func", fn.Name())
		}
	}
	return e
}

func init() {
	for _, code := range []errors.ErrorCode{
		ErrCodeInvalidConfig, ErrCodeInvalidLevel, ErrCodeAlreadyInit,
		ErrCodeNotInitialized, ErrCodeShutdownFailed, ErrCodeRegistryOverflow,
		ErrCodeRegistryMismatch, ErrCodeBufferOverflow, ErrCodeBufferExhausted,
		ErrCodeEntryTooLarge, ErrCodeWriterIO, ErrCodeWriterFailed,
		ErrCodeRotationFailed, ErrCodeInvalidArgument,
	} {
		if len(code) < 4 || string(code)[:4] != "CNL_" {
			panic(fmt.Sprintf("error code %s does not follow the CNL_ prefix convention", code))
		}
	}
}

// WrapEngineError wraps an arbitrary error (typically I/O from the binfile
// writer) into the same structured shape.
func WrapEngineError(originalErr error, code errors.ErrorCode, message string) *errors.Error {
	e := errors.Wrap(originalErr, code, message).
		WithSeverity("error").
		WithContext("component", "cnanolog_engine").
		WithContext("timestamp", time.Now().UTC())

	if pc, file, line, ok := runtime.Caller(1); ok {
		e.WithContext("caller_file", file).WithContext("caller_line", line)
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.WithContext("caller_func", fn.Name())
		}
	}
	return e
}
