package arbor

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfig(t *testing.T) {
	src := `
debug   = true
culling = false

message_queue {
  capacity = defaults.capacity * 2
  strict   = true
}

stage {
  width       = defaults.width / 2
  height      = 240
  clear_color = "cornflowerblue"
}
`
	cfg, err := ParseConfig([]byte(src), "test.hcl")
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	want.Debug = true
	want.Culling = false
	want.MessageQueue = MessageQueueConfig{Capacity: DefaultMessageCapacity * 2, Strict: true}
	want.Stage.Width = 400
	want.Stage.Height = 240
	want.Stage.ClearColor = Color{100.0 / 255, 149.0 / 255, 237.0 / 255, 1}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfigEmptyKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil, "empty.hcl")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `stage {`, "failed to parse"},
		{"unknown attribute", `speed = 3`, "failed to decode"},
		{"wrong type", `debug = "yes please"`, "failed to decode"},
		{"capacity", "message_queue {\n  capacity = 0\n}", "capacity must be positive"},
		{"color", "stage {\n  clear_color = \"notacolor\"\n}", "unknown color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.src), "bad.hcl")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.hcl")
	if err := os.WriteFile(path, []byte("stage {\n  width = 1024\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Stage.Width != 1024 || cfg.Stage.Height != 600 {
		t.Errorf("stage = %v x %v, want 1024 x 600", cfg.Stage.Width, cfg.Stage.Height)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.hcl")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want a not-exist error", err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"white", Color{1, 1, 1, 1}},
		{" Black ", Color{0, 0, 0, 1}},
		{"#ff0000", Color{1, 0, 0, 1}},
		{"#00ff0080", Color{0, 1, 0, 128.0 / 255}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "#12345", "#gggggg", "nocolor"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) succeeded, want error", bad)
		}
	}
}
