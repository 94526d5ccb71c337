// Package registry loads, validates and manages the models.json
// configuration file that drives the model manager.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"aicore/internal/common/fsutil"
	"aicore/pkg/types"
)

// Defaults applied to entries that omit optional fields.
const (
	DefaultType          = "transformers"
	DefaultFormat        = "safetensor"
	DefaultDevice        = "auto"
	DefaultQuantization  = "4bit"
	DefaultContextLength = 4096
	DefaultTemperature   = 0.7
	DefaultTopP          = 0.9
	DefaultMaxTokens     = 512
)

// File is the parsed shape of config/models.json.
type File struct {
	Models       map[string]types.ModelConfig `json:"models"`
	DefaultModel string                       `json:"default_model,omitempty"`
}

// Load reads and validates a models.json file, applying defaults.
func Load(path string) (*File, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read model config: %w", err)
	}
	return Parse(b)
}

// Parse decodes, defaults and validates raw models.json content.
func Parse(b []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse model config: %w", err)
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	for name, mc := range f.Models {
		if mc.Type == "" {
			mc.Type = DefaultType
		}
		if mc.Format == "" {
			mc.Format = DefaultFormat
		}
		if mc.Device == "" {
			mc.Device = DefaultDevice
		}
		if mc.Quantization == "" {
			mc.Quantization = DefaultQuantization
		}
		if mc.ContextLength == 0 {
			mc.ContextLength = DefaultContextLength
		}
		if mc.Temperature == 0 {
			mc.Temperature = DefaultTemperature
		}
		if mc.TopP == 0 {
			mc.TopP = DefaultTopP
		}
		if mc.MaxTokens == 0 {
			mc.MaxTokens = DefaultMaxTokens
		}
		f.Models[name] = mc
	}
}

// Validate enforces the structural rules for a model configuration file.
func (f *File) Validate() error {
	if len(f.Models) == 0 {
		return fmt.Errorf("model config declares no models")
	}
	for name, mc := range f.Models {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("model with empty name")
		}
		if strings.TrimSpace(mc.Path) == "" {
			return fmt.Errorf("model %q: path is required", name)
		}
		switch mc.Format {
		case "safetensor", "gguf", "onnx":
		default:
			return fmt.Errorf("model %q: unknown format %q", name, mc.Format)
		}
		if mc.Temperature < 0 {
			return fmt.Errorf("model %q: temperature must be >= 0", name)
		}
		if mc.TopP <= 0 || mc.TopP > 1 {
			return fmt.Errorf("model %q: top_p must be in (0,1]", name)
		}
		if mc.ContextLength < 0 || mc.MaxTokens < 0 {
			return fmt.Errorf("model %q: negative token limits", name)
		}
		if mc.MaxMemory != "" {
			if _, err := ParseMemoryMB(mc.MaxMemory); err != nil {
				return fmt.Errorf("model %q: %w", name, err)
			}
		}
	}
	if f.DefaultModel != "" {
		if _, ok := f.Models[f.DefaultModel]; !ok {
			return fmt.Errorf("default_model %q is not a configured model", f.DefaultModel)
		}
	}
	return nil
}

// List returns the configured models sorted by name.
func (f *File) List() []types.Model {
	names := make([]string, 0, len(f.Models))
	for n := range f.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]types.Model, 0, len(names))
	for _, n := range names {
		out = append(out, types.Model{Name: n, ModelConfig: f.Models[n]})
	}
	return out
}

// Encode renders the file as indented JSON with a trailing newline, the
// layout the deployment tooling has always produced.
func (f *File) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ParseMemoryMB converts a human-readable memory size ("8GB", "512MB",
// or a bare MB integer) to megabytes.
func ParseMemoryMB(s string) (int, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0, fmt.Errorf("empty memory size")
	}
	mult := 1
	switch {
	case strings.HasSuffix(v, "GB"):
		mult = 1024
		v = strings.TrimSuffix(v, "GB")
	case strings.HasSuffix(v, "MB"):
		v = strings.TrimSuffix(v, "MB")
	case strings.HasSuffix(v, "G"):
		mult = 1024
		v = strings.TrimSuffix(v, "G")
	case strings.HasSuffix(v, "M"):
		v = strings.TrimSuffix(v, "M")
	}
	v = strings.TrimSpace(v)
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid memory size %q", s)
	}
	return int(n * float64(mult)), nil
}
