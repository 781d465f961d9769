package parser

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/recallhq/recall/internal/rerrors"
	"github.com/recallhq/recall/internal/types"
)

// parseJSON implements the "strict format" branch of spec §4.1: each
// top-level key becomes a UnitTypeSection unit; malformed JSON fails
// with a *rerrors.ParseError. encoding/json is used rather than an
// ecosystem alternative — see DESIGN.md for why stdlib is the right
// choice here.
func parseJSON(filePath string, content []byte) ([]types.SemanticUnit, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(content, &root); err != nil {
		return nil, &rerrors.ParseError{Path: filePath, Language: string(types.LanguageJSON), Underlying: err}
	}
	return sectionsFromRaw(filePath, types.LanguageJSON, content, root, func(v json.RawMessage) []byte { return []byte(v) })
}

// parseTOML mirrors parseJSON using pelletier/go-toml/v2, the teacher's
// TOML dependency. Malformed TOML fails with ParseError per §4.1.
func parseTOML(filePath string, content []byte) ([]types.SemanticUnit, error) {
	// go-toml's generic map decode needs an interface{} target; re-marshal
	// each top-level value's subtree so unit.Content holds the serialized
	// subtree, as §4.1 requires.
	var generic map[string]interface{}
	if err := toml.Unmarshal(content, &generic); err != nil {
		return nil, &rerrors.ParseError{Path: filePath, Language: string(types.LanguageTOML), Underlying: err}
	}

	var units []types.SemanticUnit
	for key, val := range generic {
		if key == "" {
			continue
		}
		body, err := toml.Marshal(map[string]interface{}{key: val})
		if err != nil {
			body = []byte(fmt.Sprintf("%v", val))
		}
		units = append(units, sectionUnit(filePath, types.LanguageTOML, key, body))
	}
	return units, nil
}

// parseYAMLBestEffort implements §4.1's "malformed YAML is best-effort
// (empty unit list)" rule: a decode error yields no units, not a
// ParseError.
func parseYAMLBestEffort(filePath string, content []byte) []types.SemanticUnit {
	var root map[string]yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil
	}

	var units []types.SemanticUnit
	for key, node := range root {
		n := node
		body, err := yaml.Marshal(map[string]interface{}{key: &n})
		if err != nil {
			continue
		}
		units = append(units, sectionUnit(filePath, types.LanguageYAML, key, body))
	}
	return units
}

func sectionsFromRaw(filePath string, lang types.Language, _ []byte, root map[string]json.RawMessage, toBytes func(json.RawMessage) []byte) ([]types.SemanticUnit, error) {
	var units []types.SemanticUnit
	for key, raw := range root {
		units = append(units, sectionUnit(filePath, lang, key, toBytes(raw)))
	}
	return units, nil
}

func sectionUnit(filePath string, lang types.Language, key string, body []byte) types.SemanticUnit {
	sig := string(body)
	if len(sig) > 200 {
		sig = sig[:200]
	}
	lineCount := 1
	for _, b := range body {
		if b == '\n' {
			lineCount++
		}
	}
	return types.SemanticUnit{
		UnitType:  types.UnitTypeSection,
		Name:      key,
		Language:  lang,
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   lineCount,
		StartByte: 0,
		EndByte:   len(body),
		Signature: sig,
		Content:   body,
	}
}
