package window

import (
	"fmt"
	"strings"
)

// ThresholdProfile selects one of the fixed threshold presets.
type ThresholdProfile string

const (
	ProfileConservative ThresholdProfile = "conservative"
	ProfileBalanced     ThresholdProfile = "balanced"
	ProfileAggressive   ThresholdProfile = "aggressive"
)

// ThresholdConfig holds the usage ratios at which the window reacts. The
// invariant warning < critical < overflow, all in (0,1), is enforced by
// ValidateThresholds.
type ThresholdConfig struct {
	Warning  float64
	Critical float64
	Overflow float64
}

// ThresholdOverride carries optional per-rule replacements for individual
// profile values. Zero fields fall back to the profile.
type ThresholdOverride struct {
	Warning  float64
	Critical float64
	Overflow float64
}

var profileThresholds = map[ThresholdProfile]ThresholdConfig{
	ProfileConservative: {Warning: 0.60, Critical: 0.75, Overflow: 0.85},
	ProfileBalanced:     {Warning: 0.70, Critical: 0.85, Overflow: 0.95},
	ProfileAggressive:   {Warning: 0.80, Critical: 0.92, Overflow: 0.98},
}

// thresholdRule maps a model-name glob pattern to a profile plus optional
// partial overrides.
type thresholdRule struct {
	Pattern   string
	Profile   ThresholdProfile
	Overrides *ThresholdOverride
	Reason    string
}

// Built-in rules mirror the context behavior of the model families the
// engine is deployed against. Reasoning models leave more headroom because
// their hidden chains consume output budget.
var builtinThresholdRules = []thresholdRule{
	{Pattern: "claude*", Profile: ProfileBalanced},
	{Pattern: "gpt-4o*", Profile: ProfileBalanced},
	{Pattern: "gpt-4.1*", Profile: ProfileBalanced},
	{Pattern: "gpt-4*turbo*", Profile: ProfileBalanced},
	{Pattern: "o1*", Profile: ProfileConservative},
	{Pattern: "deepseek-r1*", Profile: ProfileConservative},
	{Pattern: "deepseek*", Profile: ProfileBalanced},
	{Pattern: "qwq*", Profile: ProfileConservative},
	{Pattern: "*-mini", Profile: ProfileAggressive},
	{Pattern: "*-nano", Profile: ProfileAggressive},
}

// ThresholdRegistry resolves per-model threshold configuration. Custom rules
// added at runtime are consulted before the built-ins; within each group the
// most recent registration for a pattern wins. Construct one per process (or
// per test) and inject it; the registry is not safe for concurrent mutation.
type ThresholdRegistry struct {
	custom []thresholdRule
}

// NewThresholdRegistry returns a registry with only the built-in rules.
func NewThresholdRegistry() *ThresholdRegistry {
	return &ThresholdRegistry{}
}

// AddModelThreshold registers or overrides a custom rule for a model glob.
func (r *ThresholdRegistry) AddModelThreshold(pattern string, profile ThresholdProfile, overrides *ThresholdOverride, reason string) {
	r.custom = append(r.custom, thresholdRule{
		Pattern:   pattern,
		Profile:   profile,
		Overrides: overrides,
		Reason:    reason,
	})
}

// ClearCustomThresholds removes every custom rule; built-ins are unaffected.
func (r *ThresholdRegistry) ClearCustomThresholds() {
	r.custom = nil
}

// Profile resolves the threshold profile for a model name. Unknown models
// fall back to defaultProfile, or balanced when defaultProfile is empty.
func (r *ThresholdRegistry) Profile(model string, defaultProfile ThresholdProfile) ThresholdProfile {
	if rule := r.resolve(model); rule != nil {
		return rule.Profile
	}
	if defaultProfile == "" {
		return ProfileBalanced
	}
	return defaultProfile
}

// Config resolves the profile for a model and merges any partial overrides
// registered for the matching rule. The returned value is fresh on every
// call so callers can mutate it freely.
func (r *ThresholdRegistry) Config(model string, defaultProfile ThresholdProfile) ThresholdConfig {
	rule := r.resolve(model)

	profile := defaultProfile
	if rule != nil {
		profile = rule.Profile
	}
	if profile == "" {
		profile = ProfileBalanced
	}

	cfg, ok := profileThresholds[profile]
	if !ok {
		cfg = profileThresholds[ProfileBalanced]
	}

	if rule != nil && rule.Overrides != nil {
		if rule.Overrides.Warning > 0 {
			cfg.Warning = rule.Overrides.Warning
		}
		if rule.Overrides.Critical > 0 {
			cfg.Critical = rule.Overrides.Critical
		}
		if rule.Overrides.Overflow > 0 {
			cfg.Overflow = rule.Overrides.Overflow
		}
	}
	return cfg
}

// resolve returns the winning rule for a model name, custom rules first,
// later registrations shadowing earlier ones within each group.
func (r *ThresholdRegistry) resolve(model string) *thresholdRule {
	for i := len(r.custom) - 1; i >= 0; i-- {
		if MatchesModelPattern(model, r.custom[i].Pattern) {
			return &r.custom[i]
		}
	}
	for i := len(builtinThresholdRules) - 1; i >= 0; i-- {
		if MatchesModelPattern(model, builtinThresholdRules[i].Pattern) {
			return &builtinThresholdRules[i]
		}
	}
	return nil
}

// MatchesModelPattern reports whether a model name matches a glob pattern.
// `*` matches any run of characters (including none) at the start, middle,
// or end of the pattern; every other character, regex metacharacters
// included, is matched literally. Matching is case-insensitive.
func MatchesModelPattern(model, pattern string) bool {
	if pattern == "" {
		return false
	}
	model = strings.ToLower(model)
	pattern = strings.ToLower(pattern)

	segments := strings.Split(pattern, "*")
	if len(segments) == 1 {
		return model == pattern
	}

	// Leading and trailing literals must anchor; interior literals may
	// float but must appear in order.
	if segments[0] != "" {
		if !strings.HasPrefix(model, segments[0]) {
			return false
		}
		model = model[len(segments[0]):]
	}
	last := segments[len(segments)-1]
	if last != "" {
		if !strings.HasSuffix(model, last) {
			return false
		}
		model = model[:len(model)-len(last)]
	}
	for _, segment := range segments[1 : len(segments)-1] {
		if segment == "" {
			continue
		}
		idx := strings.Index(model, segment)
		if idx < 0 {
			return false
		}
		model = model[idx+len(segment):]
	}
	return true
}

// ThresholdValidation collects every violation found in a ThresholdConfig.
type ThresholdValidation struct {
	Valid  bool
	Errors []string
}

// ValidateThresholds checks ordering and range for a ThresholdConfig. All
// violations are collected rather than stopping at the first; callers decide
// whether to reject or auto-correct.
func ValidateThresholds(cfg ThresholdConfig) ThresholdValidation {
	var errs []string

	check := func(name string, value float64) {
		if value <= 0 || value >= 1 {
			errs = append(errs, fmt.Sprintf("%s threshold %.3f outside (0,1)", name, value))
		}
	}
	check("warning", cfg.Warning)
	check("critical", cfg.Critical)
	check("overflow", cfg.Overflow)

	if cfg.Warning >= cfg.Critical {
		errs = append(errs, fmt.Sprintf("warning %.3f must be below critical %.3f", cfg.Warning, cfg.Critical))
	}
	if cfg.Critical >= cfg.Overflow {
		errs = append(errs, fmt.Sprintf("critical %.3f must be below overflow %.3f", cfg.Critical, cfg.Overflow))
	}

	return ThresholdValidation{Valid: len(errs) == 0, Errors: errs}
}
