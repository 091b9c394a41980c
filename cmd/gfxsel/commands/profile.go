package commands

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/script"
	"github.com/gfxsel/gfxsel/pkg/selection"
	"github.com/gfxsel/gfxsel/pkg/telemetry"
)

// Profile is the on-disk selection profile. Every field is optional; absent
// fields fall back to the engine defaults.
type Profile struct {
	Strategy           string   `yaml:"strategy"`
	Preferred          string   `yaml:"preferred"`
	FallbackChain      []string `yaml:"fallback_chain"`
	RequiredFeatures   []string `yaml:"required_features"`
	DesiredFeatures    []string `yaml:"desired_features"`
	AllowDegraded      bool     `yaml:"allow_degraded"`
	EnableValidation   bool     `yaml:"enable_validation"`
	EnableDebugMarkers bool     `yaml:"enable_debug_markers"`
	MaxInitAttempts    int      `yaml:"max_init_attempts"`
	RetryBackoff       duration `yaml:"retry_backoff"`
	ProbeTimeout       duration `yaml:"probe_timeout"`
	InitTimeout        duration `yaml:"init_timeout"`
	MaxParallelProbes  int      `yaml:"max_parallel_probes"`
	ScoreHook          string   `yaml:"score_hook"`

	Telemetry ProfileTelemetry `yaml:"telemetry"`
}

// duration parses YAML duration strings like "250ms" or "5s".
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

// ProfileTelemetry holds the observability knobs of a profile.
type ProfileTelemetry struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	MetricsAddress string `yaml:"metrics_address"`
	TraceExporter  string `yaml:"trace_exporter"`
	TraceEndpoint  string `yaml:"trace_endpoint"`
}

// LoadProfile reads and parses a profile file. An empty path returns a zero
// profile, which maps to the engine defaults.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return &Profile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	return &profile, nil
}

// SelectionConfig converts the profile into a validated selection config.
// tel is used for score hook logging; may be nil.
func (p *Profile) SelectionConfig(tel *telemetry.Telemetry) (selection.Config, error) {
	cfg := selection.DefaultConfig()

	if p.Strategy != "" {
		cfg.Strategy = selection.Strategy(p.Strategy)
	}
	if p.Preferred != "" {
		cfg.Preferred = backend.Family(p.Preferred)
	}
	if len(p.FallbackChain) > 0 {
		chain := make([]backend.Family, len(p.FallbackChain))
		for i, name := range p.FallbackChain {
			chain[i] = backend.Family(name)
		}
		cfg.FallbackChain = chain
	}

	required, err := parseFeatures(p.RequiredFeatures)
	if err != nil {
		return cfg, fmt.Errorf("required_features: %w", err)
	}
	if required != nil {
		cfg.RequiredFeatures = required
	}
	desired, err := parseFeatures(p.DesiredFeatures)
	if err != nil {
		return cfg, fmt.Errorf("desired_features: %w", err)
	}
	cfg.DesiredFeatures = desired

	cfg.AllowDegraded = p.AllowDegraded
	cfg.EnableValidation = p.EnableValidation
	cfg.EnableDebugMarkers = p.EnableDebugMarkers
	if p.MaxInitAttempts > 0 {
		cfg.MaxInitAttempts = p.MaxInitAttempts
	}
	if p.RetryBackoff > 0 {
		cfg.RetryBackoff = time.Duration(p.RetryBackoff)
	}
	if p.ProbeTimeout > 0 {
		cfg.ProbeTimeout = time.Duration(p.ProbeTimeout)
	}
	if p.InitTimeout > 0 {
		cfg.InitTimeout = time.Duration(p.InitTimeout)
	}
	if p.MaxParallelProbes > 0 {
		cfg.MaxParallelProbes = p.MaxParallelProbes
	}

	if p.ScoreHook != "" {
		var log *telemetry.Logger
		if tel != nil {
			log = tel.Logger
		}
		evaluator, err := script.NewEvaluator(p.ScoreHook, 0, log)
		if err != nil {
			return cfg, fmt.Errorf("score_hook: %w", err)
		}
		cfg.ScoreHook = evaluator.Hook()
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TelemetryConfig builds the telemetry configuration for this profile.
func (p *Profile) TelemetryConfig(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if p.Telemetry.LogLevel != "" {
		cfg.Logging.Level = p.Telemetry.LogLevel
	}
	if p.Telemetry.LogFormat != "" {
		cfg.Logging.Format = p.Telemetry.LogFormat
	}
	if jsonOutput {
		cfg.Logging.Format = "json"
	}
	if p.Telemetry.MetricsAddress != "" {
		cfg.Metrics.ListenAddress = p.Telemetry.MetricsAddress
	}
	if p.Telemetry.TraceExporter != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = p.Telemetry.TraceExporter
		cfg.Tracing.Endpoint = p.Telemetry.TraceEndpoint
	}

	return cfg
}

func parseFeatures(names []string) ([]backend.FeatureLevel, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]backend.FeatureLevel, 0, len(names))
	for _, name := range names {
		level, ok := backend.ParseFeatureLevel(name)
		if !ok {
			return nil, fmt.Errorf("unknown feature level %q", name)
		}
		out = append(out, level)
	}
	return out, nil
}
