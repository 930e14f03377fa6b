package logging

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Fields carries structured context attached to a log line.
type Fields map[string]any

func output(level, msg string, fields Fields) {
	line := make(Fields, len(fields)+3)
	for k, v := range fields {
		line[k] = v
	}
	line["level"] = level
	line["ts"] = time.Now().UTC().Format(time.RFC3339)
	line["msg"] = msg
	b, err := json.Marshal(line)
	if err != nil {
		log.Printf("%s: %s (%v)", level, msg, fields)
		return
	}
	log.Println(string(b))
}

func withError(fields Fields, err error) Fields {
	out := make(Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}

// Info logs an informational message with optional fields.
func Info(msg string, fields Fields) {
	output("info", msg, fields)
}

// Warn logs a recoverable problem. err may be nil.
func Warn(msg string, err error, fields Fields) {
	output("warn", msg, withError(fields, err))
}

// Error logs an error message and includes the error text in the fields.
func Error(msg string, err error, fields Fields) {
	output("error", msg, withError(fields, err))
}

// Fatal logs a fatal error and exits the process.
func Fatal(msg string, err error, fields Fields) {
	output("fatal", msg, withError(fields, err))
	os.Exit(1)
}
