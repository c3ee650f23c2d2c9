package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	log := New(LoggingConfig{Level: "debug", Format: "json"})
	if log.Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", log.Logger.GetLevel())
	}
	if _, ok := log.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", log.Logger.Formatter)
	}

	fallback := New(LoggingConfig{Level: "loud"})
	if fallback.Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("invalid level should fall back to info, got %v", fallback.Logger.GetLevel())
	}
}

func TestFieldsAndErrorsAreEmitted(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{Level: "info", Format: "json"})
	log.Logger.SetOutput(&buf)

	log.WithComponent("catalog").
		WithField("video_id", "abc").
		WithError(errors.New("boom")).
		Warn("lookup failed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["component"] != "catalog" || entry["video_id"] != "abc" {
		t.Fatalf("missing fields: %v", entry)
	}
	if entry["error"] != "boom" {
		t.Fatalf("error field = %v", entry["error"])
	}
	if entry["msg"] != "lookup failed" {
		t.Fatalf("msg = %v", entry["msg"])
	}
}
