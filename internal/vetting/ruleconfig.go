package vetting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dreammover/pkg/domain"
)

// LoadRuleConfig reads a rule configuration file, as YAML for .yml/.yaml paths
// and JSON otherwise. A missing, unreadable or malformed file yields the
// default configuration and usedDefault=true.
func LoadRuleConfig(path string) (cfg domain.RuleConfig, usedDefault bool) {
	if path == "" {
		return domain.DefaultRuleConfig(), true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DefaultRuleConfig(), true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return domain.DefaultRuleConfig(), true
	}
	if cfg.NotesMinLen <= 0 {
		cfg.NotesMinLen = domain.DefaultNotesMinLen
	}
	return cfg, false
}

// RuleConfigSource supplies the rule configuration at vet time.
type RuleConfigSource interface {
	RuleConfig() (domain.RuleConfig, bool)
}

// FileRuleConfig re-reads its path on every call so edits apply without restart.
type FileRuleConfig string

// RuleConfig implements RuleConfigSource.
func (f FileRuleConfig) RuleConfig() (domain.RuleConfig, bool) {
	return LoadRuleConfig(string(f))
}

// StaticRuleConfig always returns the wrapped configuration.
type StaticRuleConfig domain.RuleConfig

// RuleConfig implements RuleConfigSource.
func (s StaticRuleConfig) RuleConfig() (domain.RuleConfig, bool) {
	return domain.RuleConfig(s), false
}
