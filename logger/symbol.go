package logger

import (
	"github.com/teranos/bhav/sym"
)

// Symbol-aware logging helpers.
// These functions log with the symbol as a structured field, not in the message.
//
// Usage:
//
//	// Instead of:
//	logger.Infow(sym.IX + " Batch ingested", "rows", n)
//
//	// Use:
//	logger.IxInfow("Batch ingested", "rows", n)
//
// This makes logs queryable by symbol and keeps messages clean.

// IxInfow logs an info message with the ingest symbol (⨳)
func IxInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.IX}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// IxDebugw logs a debug message with the ingest symbol (⨳)
func IxDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.IX}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// IxWarnw logs a warning message with the ingest symbol (⨳)
func IxWarnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.IX}, keysAndValues...)
		Logger.Warnw(msg, fields...)
	}
}

// IxErrorw logs an error message with the ingest symbol (⨳)
func IxErrorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.IX}, keysAndValues...)
		Logger.Errorw(msg, fields...)
	}
}

// DBInfow logs an info message with the database symbol (⊔)
func DBInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// DBDebugw logs a debug message with the database symbol (⊔)
func DBDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// DBErrorw logs an error message with the database symbol (⊔)
func DBErrorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Errorw(msg, fields...)
	}
}

// PulseInfow logs an info message with the worker symbol (꩜)
func PulseInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Pulse}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// PulseDebugw logs a debug message with the worker symbol (꩜)
func PulseDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Pulse}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// PulseWarnw logs a warning message with the worker symbol (꩜)
func PulseWarnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Pulse}, keysAndValues...)
		Logger.Warnw(msg, fields...)
	}
}

// PulseErrorw logs an error message with the worker symbol (꩜)
func PulseErrorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Pulse}, keysAndValues...)
		Logger.Errorw(msg, fields...)
	}
}
