package rego

import (
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/vhavlena/tmplguard/pkg/types"
)

// InputSchema stores type information for `input` derived from an example
// input document.
type InputSchema struct {
	types types.TypeDef
}

// NewInputSchema creates and returns a new InputSchema instance with an empty object type definition.
//
// Returns:
//
//	*InputSchema: A new InputSchema instance.
func NewInputSchema() *InputSchema {
	return &InputSchema{
		types: types.NewObjectType(nil),
	}
}

// ProcessYAMLInput derives the input type from an example document in YAML or JSON.
//
// Parameters:
//
//	yamlData ([]byte): The YAML data to process.
//
// Returns:
//
//	error: An error if the YAML cannot be unmarshaled, otherwise nil.
func (s *InputSchema) ProcessYAMLInput(yamlData []byte) error {
	var data interface{}
	if err := yaml.Unmarshal(yamlData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal input: %w", err)
	}

	s.types = s.processNode(data)

	return nil
}

// processNode recursively maps a decoded document node to a type. Scalars
// become their primitive kinds, arrays take the union of their element kinds.
func (s *InputSchema) processNode(node interface{}) types.TypeDef {
	switch nodeValue := node.(type) {
	case map[string]interface{}:
		fields := make(map[string]types.TypeDef, len(nodeValue))
		for key, value := range nodeValue {
			fields[key] = s.processNode(value)
		}
		return types.NewObjectType(fields)
	case []interface{}:
		if len(nodeValue) == 0 {
			return types.NewArray(types.NewPrimitive(types.PrimitiveAny))
		}
		elems := make([]types.TypeDef, 0, len(nodeValue))
		for _, v := range nodeValue {
			elems = append(elems, s.processNode(v))
		}
		return types.NewArray(types.NewUnion(elems))
	case string:
		return types.NewPrimitive(types.PrimitiveString)
	case float64, int, int64:
		return types.NewPrimitive(types.PrimitiveNumber)
	case bool:
		return types.NewPrimitive(types.PrimitiveBoolean)
	case nil:
		return types.NewPrimitive(types.PrimitiveNull)
	default:
		return types.NewPrimitive(types.PrimitiveAny)
	}
}

// GetType returns the type found at path below `input`.
//
// Parameters:
//
//	path ([]string): Nested field names or array indices.
//
// Returns:
//
//	*types.TypeDef: The type definition for the path, if found.
//	bool: True if the path exists, false otherwise.
func (s *InputSchema) GetType(path []string) (*types.TypeDef, bool) {
	return s.types.GetTypeFromPath(path)
}

// HasField checks if a field exists at the given path in the input schema.
func (s *InputSchema) HasField(path []string) bool {
	typ, exists := s.GetType(path)
	return exists && typ != nil
}

// GetTypes returns the complete type of the input document.
func (s *InputSchema) GetTypes() types.TypeDef {
	return s.types
}
