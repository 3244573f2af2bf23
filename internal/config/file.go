package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-clap/pkg/audioio"
	"github.com/teslashibe/go-clap/pkg/clap"
	"github.com/teslashibe/go-clap/pkg/listener"
	"github.com/teslashibe/go-clap/pkg/web"
)

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "text", "json" or empty for auto
}

// File is the clapd configuration file.
//
//	audio:
//	  backend: portaudio
//	  sample_rate: 22050
//	  buffer_duration: 46ms
//	detector:
//	  required_claps: 3
//	  min_interval: 200ms
//	  max_interval: 1s
//	  threshold: 2000
//	web:
//	  addr: ":8080"
//	log:
//	  level: info
type File struct {
	Audio    audioio.Config  `yaml:"audio" json:"audio"`
	Detector listener.Config `yaml:"detector" json:"detector"`
	Web      web.Config      `yaml:"web" json:"web"`
	Log      LogConfig       `yaml:"log" json:"log"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		Audio:    audioio.DefaultConfig(),
		Detector: listener.DefaultConfig(),
		Web:      web.DefaultConfig(),
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values. The result is not validated.
func Load(path string) (File, error) {
	f := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

// ApplyEnv overrides fields from CLAP_* environment variables.
func (f *File) ApplyEnv() error {
	threshold, err := Threshold(f.Detector.Threshold)
	if err != nil {
		return err
	}
	f.Detector.Threshold = threshold
	f.Audio.Backend = audioio.Backend(Backend(string(f.Audio.Backend)))
	f.Log.Level = LogLevel(f.Log.Level)
	if port := Port(""); port != "" {
		f.Web.Addr = ":" + port
	}
	return nil
}

// Validate checks every section.
func (f *File) Validate() error {
	var errs []error
	if err := f.Audio.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if err := f.Detector.Detector.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}
	if err := clap.ValidateThreshold(f.Detector.Threshold); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}
	if strings.TrimSpace(f.Web.Addr) == "" {
		errs = append(errs, errors.New("web: addr is required"))
	}
	switch f.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", f.Log.Format))
	}
	return errors.Join(errs...)
}
