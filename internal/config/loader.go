package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Environment knobs read before any layering happens.
const (
	EnvPrefix  = "INKCHECK_"
	EnvConfig  = EnvPrefix + "CONFIG"
	EnvDotFile = EnvPrefix + "ENV_FILE"

	defaultDotFile = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file (INKCHECK_ENV_FILE, default ".env"), exported into the
//     process environment without overriding variables already set
//  3. file (YAML) if INKCHECK_CONFIG is set
//  4. env (prefix INKCHECK_, "__" separates nested keys)
func Load(ctx context.Context) (*Config, error) {
	loadDotEnv()
	return LoadFrom(ctx, os.Getenv(EnvConfig))
}

// LoadFrom is Load with an explicit YAML path; an empty path skips the file
// layer.
func LoadFrom(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	defaults, err := yamlv3.Marshal(New())
	if err != nil {
		return nil, fmt.Errorf("%w: encode defaults: %w", ErrLoadConfig, err)
	}
	if err := k.Load(rawBytes(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrLoadConfig, err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// INKCHECK_QUEUE_SIZE -> queue_size
	// INKCHECK_SCORING__THRESHOLDS__PASTE_RATIO_THRESHOLD -> scoring.thresholds.paste_ratio_threshold
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func loadDotEnv() {
	path := os.Getenv(EnvDotFile)
	if path == "" {
		path = defaultDotFile
	}
	// A missing .env is the common case.
	_ = godotenv.Load(path)
}

// rawBytes feeds an in-memory document to a koanf parser.
type rawBytes []byte

func (b rawBytes) ReadBytes() ([]byte, error) { return b, nil }

func (b rawBytes) Read() (map[string]interface{}, error) {
	return nil, errors.New("raw bytes provider does not support this method")
}
