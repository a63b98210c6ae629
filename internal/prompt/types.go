package prompt

import "io"

// Preset is a named aggressiveness level.
type Preset string

const (
	// PresetLight preserves content safely.
	PresetLight Preset = "light"

	// PresetModerate balances compression with quality.
	PresetModerate Preset = "moderate"

	// PresetAggressive maximises token reduction.
	PresetAggressive Preset = "aggressive"
)

var presetValues = map[Preset]float64{
	PresetLight:      0.2,
	PresetModerate:   0.5,
	PresetAggressive: 0.8,
}

// Value returns the aggressiveness the preset stands for.
func (p Preset) Value() (float64, bool) {
	v, ok := presetValues[p]
	return v, ok
}

// LevelFlags holds the aggressiveness-related flags of one invocation.
type LevelFlags struct {
	// Custom is set when -a/--aggressiveness was given explicitly.
	Custom *float64

	Light      bool
	Moderate   bool
	Aggressive bool
}

// Resolve returns the effective aggressiveness: Custom, then the first set
// preset in the order light, moderate, aggressive, then fallback.
func (f LevelFlags) Resolve(fallback float64) float64 {
	if f.Custom != nil {
		return *f.Custom
	}

	presets := []struct {
		set    bool
		preset Preset
	}{
		{f.Light, PresetLight},
		{f.Moderate, PresetModerate},
		{f.Aggressive, PresetAggressive},
	}
	for _, p := range presets {
		if p.set {
			v, _ := p.preset.Value()
			return v
		}
	}

	return fallback
}

// Source describes where the prompt text comes from.
type Source struct {
	// Args are inline prompt words. Highest precedence.
	Args []string

	// File is a path to read the prompt from.
	File string

	// Stdin is read when neither Args nor File is given and
	// StdinIsTerminal is false.
	Stdin           io.Reader
	StdinIsTerminal bool
}

// Options are the compression settings of one request.
type Options struct {
	// Aggressiveness must be within [0.0, 1.0].
	Aggressiveness float64

	// MaxTokens and MinTokens are optional; when set they must be positive
	// and MaxTokens must not be below MinTokens.
	MaxTokens *int
	MinTokens *int

	// TimeoutSeconds must be within [1, MaxTimeoutSeconds].
	TimeoutSeconds int
}
