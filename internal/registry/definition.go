package registry

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// ⭐ SSOT: 전략 정의 파일 형식은 여기서만
// Definition is one strategy definition file. The meta block becomes the
// strategy's metadata; the rule block selects and parameterizes the
// analyze implementation.
type Definition struct {
	Meta DefinitionMeta `yaml:"meta"`
	Rule DefinitionRule `yaml:"rule"`
}

type DefinitionMeta struct {
	DisplayName       string   `yaml:"display_name"`
	Description       string   `yaml:"description"`
	StrategyType      string   `yaml:"strategy_type"`
	Timeframe         string   `yaml:"timeframe"`
	Indicators        []string `yaml:"indicators"`
	EntryExitCriteria string   `yaml:"entry_exit_criteria"`
	ScoringLogic      string   `yaml:"scoring_logic"`
}

type DefinitionRule struct {
	Kind   string    `yaml:"kind"`
	Params yaml.Node `yaml:"params"`
}

// ParseDefinition strictly decodes raw definition bytes. Unknown top
// level or meta keys reject the file: a misspelled field would
// otherwise load as an incomplete definition.
func ParseDefinition(raw []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.Meta.DisplayName) == "" {
		return fmt.Errorf("meta.display_name is required")
	}
	if d.Meta.StrategyType != "" && !contracts.StrategyType(d.Meta.StrategyType).Valid() {
		return fmt.Errorf("meta.strategy_type %q must be %s or %s",
			d.Meta.StrategyType, contracts.StrategyTypeRuleBased, contracts.StrategyTypeAIBased)
	}
	if strings.TrimSpace(d.Rule.Kind) == "" {
		return fmt.Errorf("rule.kind is required")
	}
	return nil
}

// StrategyType returns the declared type, defaulting to rule based.
func (d *Definition) StrategyType() contracts.StrategyType {
	if d.Meta.StrategyType == "" {
		return contracts.StrategyTypeRuleBased
	}
	return contracts.StrategyType(d.Meta.StrategyType)
}

// DefinitionHash fingerprints the raw file bytes. Any edit, even to a
// comment, counts as a change.
func DefinitionHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ScriptID derives the registry key from a definition filename.
func ScriptID(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDefinitionFile reports whether a directory entry name is a
// candidate definition. Underscore prefixed files are drafts and stay
// out of the registry.
func IsDefinitionFile(name string) bool {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
