package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_LevelFollowsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug().Msg("hidden")
	log.Info().Str("path", "/a.png").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug event should be dropped, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "path=/a.png") {
		t.Errorf("Expected info event with its field, got %q", out)
	}

	buf.Reset()
	New(&buf, true).Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("Expected debug event, got %q", buf.String())
	}
}
