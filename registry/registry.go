// Package registry loads and validates the suitecheck configuration file.
package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/probelabs/suitecheck/runner"
	"github.com/probelabs/suitecheck/targets"
	"github.com/probelabs/suitecheck/types"
)

// DefaultConfigFile is the config file looked for in the project root.
const DefaultConfigFile = "suitecheck.yaml"

// Registry holds the validated configuration for one run.
type Registry struct {
	project    projectConfig
	suites     []types.SuiteConfig
	thresholds types.ThresholdConfig
}

// Config contains registry configuration.
type Config struct {
	Log            logrus.FieldLogger
	ConfigFile     string
	DefaultTimeout time.Duration
}

// Duration parses YAML values like "30s" or "150ms" into time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type projectConfig struct {
	Name           string   `yaml:"name"`
	Binaries       []string `yaml:"binaries"`
	SourcePatterns []string `yaml:"source_patterns"`
}

type checkConfig struct {
	Check string `yaml:"check"`
}

type coverageConfig struct {
	Check    string            `yaml:"check"`
	Min      *float64          `yaml:"min"`
	Packages map[string]pkgMin `yaml:"package"`
}

type pkgMin struct {
	Min float64 `yaml:"min"`
}

type suiteConfig struct {
	Runner   string   `yaml:"runner"`
	Name     string   `yaml:"name"`
	Path     string   `yaml:"path"`
	Setup    string   `yaml:"setup"`
	Command  string   `yaml:"command"`
	Targets  []string `yaml:"targets"`
	CI       bool     `yaml:"ci"`
	Timeout  Duration `yaml:"timeout"`
	MaxTotal Duration `yaml:"max_total"`
	MaxAvg   Duration `yaml:"max_avg"`
	MaxTest  Duration `yaml:"max_test"`
}

type fileConfig struct {
	Project projectConfig `yaml:"project"`
	Tests   struct {
		Time     checkConfig    `yaml:"time"`
		Coverage coverageConfig `yaml:"coverage"`
		Suites   []suiteConfig  `yaml:"suites"`
	} `yaml:"tests"`
}

// NewRegistry loads and validates the config file.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.ConfigFile == "" {
		return nil, fmt.Errorf("config file is required")
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	r := &Registry{project: file.Project}

	for i, sc := range file.Tests.Suites {
		if sc.Runner == "" {
			return nil, fmt.Errorf("suite %d: runner is required", i)
		}
		if _, ok := runner.Get(sc.Runner); !ok {
			return nil, fmt.Errorf("suite %d: unknown runner %q (known: %v)", i, sc.Runner, runner.Names())
		}
		if sc.Runner == "custom" && sc.Command == "" {
			return nil, fmt.Errorf("suite %d: custom runner requires 'command'", i)
		}
		timeout := time.Duration(sc.Timeout)
		if timeout == 0 {
			timeout = cfg.DefaultTimeout
		}
		r.suites = append(r.suites, types.SuiteConfig{
			Runner:   sc.Runner,
			Name:     sc.Name,
			Path:     sc.Path,
			Setup:    sc.Setup,
			Command:  sc.Command,
			Targets:  sc.Targets,
			CI:       sc.CI,
			Timeout:  timeout,
			MaxTotal: time.Duration(sc.MaxTotal),
			MaxAvg:   time.Duration(sc.MaxAvg),
			MaxTest:  time.Duration(sc.MaxTest),
		})
	}

	r.thresholds = types.ThresholdConfig{
		Time:        parseCheckLevel(file.Tests.Time.Check, types.CheckError),
		Coverage:    parseCheckLevel(file.Tests.Coverage.Check, types.CheckWarn),
		MinCoverage: file.Tests.Coverage.Min,
	}
	if len(file.Tests.Coverage.Packages) > 0 {
		r.thresholds.GroupMinimums = map[string]float64{}
		for pkg, m := range file.Tests.Coverage.Packages {
			r.thresholds.GroupMinimums[pkg] = m.Min
		}
	}

	cfg.Log.WithFields(logrus.Fields{
		"suites": len(r.suites),
		"config": cfg.ConfigFile,
	}).Debug("registry loaded")
	return r, nil
}

func parseCheckLevel(raw string, fallback types.CheckLevel) types.CheckLevel {
	switch types.CheckLevel(raw) {
	case types.CheckOff, types.CheckWarn, types.CheckError:
		return types.CheckLevel(raw)
	}
	return fallback
}

// Suites returns the configured suites in file order.
func (r *Registry) Suites() []types.SuiteConfig { return r.suites }

// Thresholds returns the configured check levels and limits.
func (r *Registry) Thresholds() types.ThresholdConfig { return r.thresholds }

// ProjectName returns the configured project name.
func (r *Registry) ProjectName() string { return r.project.Name }

// Metadata builds the target resolution input for a project root.
func (r *Registry) Metadata(root string) targets.Metadata {
	return targets.Metadata{
		Root:           root,
		Binaries:       r.project.Binaries,
		SourcePatterns: r.project.SourcePatterns,
	}
}
