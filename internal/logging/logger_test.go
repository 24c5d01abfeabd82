package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestSetLevelFiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	prev := baseLogger
	baseLogger = log.New(&buf, "", 0)
	defer func() {
		baseLogger = prev
		SetLevel("info")
	}()

	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	Errorf("disk at %d%%", 100)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] disk at 100%") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestSetLevelUnknown(t *testing.T) {
	defer SetLevel("info")
	SetLevel("debug")
	if SetLevel("verbose") {
		t.Fatal("SetLevel accepted unknown level")
	}
	if GetLevel() != LevelDebug {
		t.Errorf("level changed by unknown name: %v", GetLevel())
	}
	if !ValidLevel("Warning") {
		t.Error("ValidLevel should accept case-insensitive names")
	}
}
