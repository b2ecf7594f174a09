package cloak

import "sort"

// Cloth preset names
const (
	PresetDarkGreen = "dark-green"
	PresetGreen     = "green"
	PresetRed       = "red"
	PresetBlue      = "blue"
)

// Cleanup preset names
const (
	CleanupSmooth = "smooth"
	CleanupFast   = "fast"
)

// ClothPresets returns all available cloth colour range sets.
func ClothPresets() map[string][]Range {
	return map[string][]Range{
		PresetDarkGreen: DarkGreenRanges(),
		PresetGreen:     GreenRanges(),
		PresetRed:       RedRanges(),
		PresetBlue:      BlueRanges(),
	}
}

// CleanupPresets returns all available cleanup sequences.
func CleanupPresets() map[string]Cleanup {
	return map[string]Cleanup{
		CleanupSmooth: SmoothCleanup(),
		CleanupFast:   FastCleanup(),
	}
}

// PresetNames returns the sorted cloth preset names.
func PresetNames() []string {
	names := make([]string, 0, 4)
	for name := range ClothPresets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GreenRanges covers a bright, saturated green screen style cloth.
func GreenRanges() []Range {
	return []Range{
		{Name: "green", Lower: HSV{35, 80, 60}, Upper: HSV{85, 255, 255}},
	}
}

// RedRanges covers a red cloth. Red straddles hue 0, so it needs two ranges.
func RedRanges() []Range {
	return []Range{
		{Name: "red low", Lower: HSV{0, 120, 70}, Upper: HSV{10, 255, 255}},
		{Name: "red high", Lower: HSV{170, 120, 70}, Upper: HSV{179, 255, 255}},
	}
}

// BlueRanges covers a mid to dark blue cloth.
func BlueRanges() []Range {
	return []Range{
		{Name: "blue", Lower: HSV{94, 80, 2}, Upper: HSV{126, 255, 255}},
	}
}

// WithPreset returns a copy of cfg with the named cloth ranges applied.
// Returns false if the preset is unknown.
func (c Config) WithPreset(name string) (Config, bool) {
	ranges, ok := ClothPresets()[name]
	if !ok {
		return c, false
	}
	c.Cloth = ranges
	return c, true
}

// WithCleanup returns a copy of cfg with the named cleanup sequence applied.
// Returns false if the preset is unknown.
func (c Config) WithCleanup(name string) (Config, bool) {
	cl, ok := CleanupPresets()[name]
	if !ok {
		return c, false
	}
	c.Cleanup = cl
	return c, true
}
