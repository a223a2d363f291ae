package arbor

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/image/colornames"
)

// Config configures a Core.
type Config struct {
	// Debug turns contract violations into panics and logs frame statistics.
	Debug bool
	// Logger receives all core logging. Nil discards it.
	Logger *slog.Logger

	MessageQueue MessageQueueConfig
	Stage        StageConfig

	// Culling enables frustum culling on the default render task.
	Culling bool
}

// MessageQueueConfig sizes the producer message batches.
type MessageQueueConfig struct {
	Capacity int
	// Strict panics when a batch overflows instead of growing it.
	Strict bool
}

// StageConfig describes the root layer and the default render task.
type StageConfig struct {
	Width, Height float32
	ClearColor    Color
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MessageQueue: MessageQueueConfig{Capacity: DefaultMessageCapacity},
		Stage: StageConfig{
			Width:      800,
			Height:     600,
			ClearColor: Color{0, 0, 0, 1},
		},
		Culling: true,
	}
}

// configFile is the HCL shape of a configuration file. Every attribute is
// optional and overrides the default when present.
type configFile struct {
	Debug        *bool              `hcl:"debug,optional"`
	Culling      *bool              `hcl:"culling,optional"`
	MessageQueue *messageQueueBlock `hcl:"message_queue,block"`
	Stage        *stageBlock        `hcl:"stage,block"`
}

type messageQueueBlock struct {
	Capacity *int  `hcl:"capacity,optional"`
	Strict   *bool `hcl:"strict,optional"`
}

type stageBlock struct {
	Width      *float64 `hcl:"width,optional"`
	Height     *float64 `hcl:"height,optional"`
	ClearColor *string  `hcl:"clear_color,optional"`
}

// LoadConfig reads an HCL configuration file.
func LoadConfig(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(src, path)
}

// ParseConfig parses HCL configuration source. Expressions may refer to the
// defaults through the defaults object, for example
// `width = defaults.width * 2`.
func ParseConfig(src []byte, filename string) (Config, error) {
	cfg := DefaultConfig()

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}

	var fc configFile
	diags = gohcl.DecodeBody(file.Body, configEvalContext(cfg), &fc)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
	if fc.Culling != nil {
		cfg.Culling = *fc.Culling
	}
	if mq := fc.MessageQueue; mq != nil {
		if mq.Capacity != nil {
			if *mq.Capacity <= 0 {
				return cfg, fmt.Errorf("config %s: message_queue.capacity must be positive, got %d", filename, *mq.Capacity)
			}
			cfg.MessageQueue.Capacity = *mq.Capacity
		}
		if mq.Strict != nil {
			cfg.MessageQueue.Strict = *mq.Strict
		}
	}
	if st := fc.Stage; st != nil {
		if st.Width != nil {
			cfg.Stage.Width = float32(*st.Width)
		}
		if st.Height != nil {
			cfg.Stage.Height = float32(*st.Height)
		}
		if st.ClearColor != nil {
			c, err := ParseColor(*st.ClearColor)
			if err != nil {
				return cfg, fmt.Errorf("config %s: stage.clear_color: %w", filename, err)
			}
			cfg.Stage.ClearColor = c
		}
	}
	return cfg, nil
}

func configEvalContext(def Config) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"defaults": cty.ObjectVal(map[string]cty.Value{
				"width":    cty.NumberFloatVal(float64(def.Stage.Width)),
				"height":   cty.NumberFloatVal(float64(def.Stage.Height)),
				"capacity": cty.NumberIntVal(int64(def.MessageQueue.Capacity)),
			}),
		},
	}
}

// ParseColor accepts an SVG color name such as "cornflowerblue" or a hex
// color "#rrggbb" / "#rrggbbaa".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := colornames.Map[s]; ok {
		return Color{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return Color{}, fmt.Errorf("unknown color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		float32(v>>24&0xff) / 255,
		float32(v>>16&0xff) / 255,
		float32(v>>8&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}
