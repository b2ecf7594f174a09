package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-cloak/pkg/camera"
	"github.com/teslashibe/go-cloak/pkg/cloak"
)

// ErrInvalidSettings is returned when a settings file fails validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the on-disk settings file. Anything the file leaves out keeps
// its default.
//
//	log_level: debug
//	camera:
//	  device: "0"
//	  settle_delay: 3s
//	cloak:
//	  cloth:
//	    - name: green
//	      lower: {h: 35, s: 80, v: 60}
//	      upper: {h: 85, s: 255, v: 255}
type Settings struct {
	LogLevel string        `yaml:"log_level"`
	Camera   camera.Config `yaml:"camera"`
	Cloak    cloak.Config  `yaml:"cloak"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		LogLevel: DefaultLogLevel,
		Camera:   camera.DefaultConfig(),
		Cloak:    cloak.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// The result is validated.
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Err(); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overrides the device and log level from the environment.
func (s *Settings) ApplyEnv() {
	s.Camera.Device = Device(s.Camera.Device)
	s.LogLevel = LogLevel(s.LogLevel)
}

// Validate checks both sections and returns every problem found.
func (s *Settings) Validate() []string {
	var errs []string
	for _, e := range s.Camera.Validate() {
		errs = append(errs, "camera: "+e)
	}
	for _, e := range s.Cloak.Validate() {
		errs = append(errs, "cloak: "+e)
	}
	return errs
}

// Err returns Validate's result as an error wrapping ErrInvalidSettings.
func (s *Settings) Err() error {
	if errs := s.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(errs, "; "))
	}
	return nil
}

// Marshal renders s as YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
