package models

import "math"

const (
	MinTemperature = 0.1
	MaxTemperature = 1.0
	MinTopP        = 0.1
	MaxTopP        = 1.0
	MaxTokensLimit = 8192
)

// GenerationParams holds the optional sampling parameters of a request.
// A nil field means "not set"; providers substitute their configured default.
type GenerationParams struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// WithDefaults fills every unset field from defaults.
func (p GenerationParams) WithDefaults(defaults GenerationParams) GenerationParams {
	if p.Temperature == nil && defaults.Temperature != nil {
		p.Temperature = Float64(*defaults.Temperature)
	}
	if p.TopP == nil && defaults.TopP != nil {
		p.TopP = Float64(*defaults.TopP)
	}
	if p.MaxTokens == nil && defaults.MaxTokens != nil {
		p.MaxTokens = Int(*defaults.MaxTokens)
	}
	return p
}

// Clamp pulls every set field into its valid range. Out-of-range values are
// never rejected. Clamp is idempotent and leaves in-range values untouched.
func (p GenerationParams) Clamp() GenerationParams {
	out := GenerationParams{}
	if p.Temperature != nil {
		out.Temperature = Float64(ClampTemperature(*p.Temperature))
	}
	if p.TopP != nil {
		out.TopP = Float64(ClampTopP(*p.TopP))
	}
	if p.MaxTokens != nil {
		out.MaxTokens = Int(ClampMaxTokens(*p.MaxTokens))
	}
	return out
}

// Resolve applies provider defaults and then clamps. Every provider calls it
// before building its native request.
func (p GenerationParams) Resolve(defaults GenerationParams) GenerationParams {
	return p.WithDefaults(defaults).Clamp()
}

func ClampTemperature(v float64) float64 { return clampFloat(v, MinTemperature, MaxTemperature) }

func ClampTopP(v float64) float64 { return clampFloat(v, MinTopP, MaxTopP) }

// ClampMaxTokens caps v at MaxTokensLimit. Non-positive values become 1 so
// the result always lies in (0, MaxTokensLimit].
func ClampMaxTokens(v int) int {
	if v > MaxTokensLimit {
		return MaxTokensLimit
	}
	if v < 1 {
		return 1
	}
	return v
}

// clampFloat maps NaN to lo.
func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
