package strategy

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// decodeParams decodes a rule's params node strictly into out. Unknown
// keys reject the definition at scan time instead of being silently
// dropped.
//
// Callers preload out with defaults; absent keys keep them.
func decodeParams(node *yaml.Node, out interface{}) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
