package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/mrcl/maprot/internal/remote"
	"github.com/mrcl/maprot/internal/servercfg"
)

const envConfig = "MAPROT_CONFIG"

//go:embed config.schema.json
var configSchemaJSON string

var configSchema = jsonschema.MustCompileString("config.schema.json", configSchemaJSON)

// Config represents the maprot configuration file (~/.config/maprot/config.yaml).
// Relative directories are resolved against WorkDir.
type Config struct {
	WorkDir     string `yaml:"work_dir"`
	MapsDir     string `yaml:"maps_dir"`
	EntsDir     string `yaml:"ents_dir"`
	ModifiedDir string `yaml:"modified_dir"`
	OutputDir   string `yaml:"output_dir"`
	StatePath   string `yaml:"state_path"`
	JournalPath string `yaml:"journal_path"`
	BundleDir   string `yaml:"bundle_dir"`

	// Rotation names the stored rotation the commands operate on.
	Rotation      string `yaml:"rotation"`
	Strict        *bool  `yaml:"strict"`
	ServerAddress string `yaml:"server_address"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Remote remote.Config      `yaml:"remote"`
	Server servercfg.Settings `yaml:"server"`
}

func configPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfig)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "maprot", "config.yaml")
}

// LoadConfig reads and validates the config file at path. A missing file
// yields a zero Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if doc == nil {
		return Config{}, nil
	}
	if err := validateConfig(doc); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// validateConfig checks a decoded YAML document against the embedded schema.
// The document is round-tripped through JSON so numbers carry JSON types.
func validateConfig(doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := configSchema.Validate(v); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// applyConfig fills global flag variables from cfg when the flag was not set
// on the command line or through the environment.
func applyConfig(c *cli.Command, cfg Config) {
	set := func(flag string, dst *string, v string) {
		if v != "" && !c.IsSet(flag) {
			*dst = v
		}
	}
	set("work-dir", &workDir, cfg.WorkDir)
	set("maps-dir", &mapsDir, cfg.MapsDir)
	set("ents-dir", &entsDir, cfg.EntsDir)
	set("modified-dir", &modifiedDir, cfg.ModifiedDir)
	set("output-dir", &outputDir, cfg.OutputDir)
	set("state", &statePath, cfg.StatePath)
	set("journal", &journalPath, cfg.JournalPath)
	set("rotation-name", &rotationName, cfg.Rotation)
	set("log-level", &logLevel, cfg.LogLevel)
	set("log-format", &logFormat, cfg.LogFormat)
	if cfg.Strict != nil && !c.IsSet("strict") {
		strict = *cfg.Strict
	}
}
