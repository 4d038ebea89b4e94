package cmd

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nixel-lang/nixel/eval"
)

// ConfigFile is the YAML settings file accepted by --config. All
// fields are optional; flags still win over the file.
type ConfigFile struct {
	PureEval           bool              `yaml:"pure-eval"`
	RestrictEval       bool              `yaml:"restrict-eval"`
	AllowedPaths       []string          `yaml:"allowed-paths"`
	AllowedURIs        []string          `yaml:"allowed-uris"`
	MaxCallDepth       int               `yaml:"max-call-depth"`
	TraceFunctionCalls bool              `yaml:"trace-function-calls"`
	CountCalls         bool              `yaml:"count-calls"`
	SearchPath         map[string]string `yaml:"search-path"` // prefix → path
	CurrentSystem      string            `yaml:"system"`
}

// LoadConfigFile reads and decodes a settings file.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// Apply folds the file settings into an evaluator configuration.
func (c *ConfigFile) Apply(cfg eval.Config) eval.Config {
	cfg.PureEval = cfg.PureEval || c.PureEval
	cfg.RestrictEval = cfg.RestrictEval || c.RestrictEval
	cfg.AllowedPaths = append(cfg.AllowedPaths, c.AllowedPaths...)
	cfg.AllowedURIs = append(cfg.AllowedURIs, c.AllowedURIs...)
	if c.MaxCallDepth > 0 {
		cfg.MaxCallDepth = c.MaxCallDepth
	}
	cfg.TraceFunctionCalls = cfg.TraceFunctionCalls || c.TraceFunctionCalls
	cfg.CountCalls = cfg.CountCalls || c.CountCalls
	if c.CurrentSystem != "" {
		cfg.CurrentSystem = c.CurrentSystem
	}
	prefixes := make([]string, 0, len(c.SearchPath))
	for prefix := range c.SearchPath {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		cfg.SearchPath = append(cfg.SearchPath, eval.SearchPathElem{Prefix: prefix, Value: c.SearchPath[prefix]})
	}
	return cfg
}
