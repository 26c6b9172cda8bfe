package window

import "testing"

func TestMatchesModelPattern(t *testing.T) {
	cases := []struct {
		model   string
		pattern string
		want    bool
	}{
		{"deepseek-chat", "deepseek*", true},
		{"gpt-4-turbo", "*turbo", true},
		{"claude-3-opus", "claude*opus", true},
		{"not-deepseek", "deepseek*", false},
		{"DeepSeek-Chat", "deepseek*", true},
		{"gpt-4.1", "gpt-4.1*", true},
		{"gpt-401", "gpt-4.1*", false},
		{"gpt-4o-mini", "*-mini", true},
		{"gpt-4o", "gpt-4o", true},
		{"gpt-4o", "gpt-4", false},
		{"anything", "*", true},
		{"anything", "", false},
		{"a", "a*a", false},
		{"aba", "a*a", true},
	}
	for _, tc := range cases {
		if got := MatchesModelPattern(tc.model, tc.pattern); got != tc.want {
			t.Errorf("MatchesModelPattern(%q, %q) = %v, want %v", tc.model, tc.pattern, got, tc.want)
		}
	}
}

func TestBuiltinProfilesAreOrdered(t *testing.T) {
	for profile, cfg := range profileThresholds {
		result := ValidateThresholds(cfg)
		if !result.Valid {
			t.Errorf("built-in profile %s invalid: %v", profile, result.Errors)
		}
	}
}

func TestValidateThresholdsCollectsAllViolations(t *testing.T) {
	result := ValidateThresholds(ThresholdConfig{Warning: 1.5, Critical: 0.5, Overflow: 0.4})
	if result.Valid {
		t.Fatalf("expected invalid config")
	}
	// Out-of-range warning, warning>=critical, critical>=overflow.
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 violations, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestCustomThresholdPrecedence(t *testing.T) {
	registry := NewThresholdRegistry()

	if got := registry.Profile("gpt-4o", ""); got != ProfileBalanced {
		t.Fatalf("built-in profile for gpt-4o = %s, want balanced", got)
	}

	registry.AddModelThreshold("gpt-4o*", ProfileAggressive, nil, "load test")
	if got := registry.Profile("gpt-4o", ""); got != ProfileAggressive {
		t.Fatalf("custom rule did not override built-in: got %s", got)
	}

	// Later registration for the same pattern wins.
	registry.AddModelThreshold("gpt-4o*", ProfileConservative, nil, "")
	if got := registry.Profile("gpt-4o", ""); got != ProfileConservative {
		t.Fatalf("later registration did not win: got %s", got)
	}

	registry.ClearCustomThresholds()
	if got := registry.Profile("gpt-4o", ""); got != ProfileBalanced {
		t.Fatalf("clear did not restore built-in behavior: got %s", got)
	}
}

func TestConfigMergesPartialOverrides(t *testing.T) {
	registry := NewThresholdRegistry()
	registry.AddModelThreshold("mymodel*", ProfileBalanced, &ThresholdOverride{Critical: 0.80}, "")

	cfg := registry.Config("mymodel-v2", "")
	balanced := profileThresholds[ProfileBalanced]
	if cfg.Warning != balanced.Warning || cfg.Overflow != balanced.Overflow {
		t.Fatalf("missing override fields should fall back to profile: %+v", cfg)
	}
	if cfg.Critical != 0.80 {
		t.Fatalf("override not applied: critical = %v", cfg.Critical)
	}

	// Returned values must not alias registry state.
	cfg.Warning = 0.01
	if again := registry.Config("mymodel-v2", ""); again.Warning == 0.01 {
		t.Fatalf("Config returned aliased state")
	}
}

func TestUnknownModelFallsBackToDefaultProfile(t *testing.T) {
	registry := NewThresholdRegistry()
	if got := registry.Profile("totally-unknown-model", ProfileConservative); got != ProfileConservative {
		t.Fatalf("want caller default, got %s", got)
	}
	if got := registry.Profile("totally-unknown-model", ""); got != ProfileBalanced {
		t.Fatalf("want balanced fallback, got %s", got)
	}
}
