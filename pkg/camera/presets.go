package camera

import "time"

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLowRes  = "lowres"
	Preset720p    = "720p"
	PresetQuick   = "quick"
	PresetStable  = "stable"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLowRes:  LowResConfig(),
		Preset720p:    HD720Config(),
		PresetQuick:   QuickConfig(),
		PresetStable:  StableConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLowRes,
		Preset720p,
		PresetQuick,
		PresetStable,
	}
}

// GetPreset returns a preset configuration by name.
// Returns nil if preset doesn't exist.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LowResConfig returns 320x240 for slow machines.
// The cleanup kernels are fixed in pixels, so masks look chunkier.
func LowResConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	return cfg
}

// HD720Config returns 1280x720.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// QuickConfig skips most of the waiting, for a camera that is already warm.
func QuickConfig() Config {
	cfg := DefaultConfig()
	cfg.WarmupDelay = 0
	cfg.SettleDelay = time.Second
	cfg.BackgroundFrames = 10
	return cfg
}

// StableConfig averages a longer capture to reduce sensor noise in the background.
func StableConfig() Config {
	cfg := DefaultConfig()
	cfg.BackgroundFrames = 60
	cfg.BackgroundInterval = 50 * time.Millisecond
	cfg.BackgroundMode = BackgroundAverage
	return cfg
}
