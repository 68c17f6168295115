package server

import (
	"fmt"

	"github.com/fabriq-ai/engine/config"
)

// ValidateContract checks that every contract field is present in data with
// the declared type. JSON decoding yields float64 for every number, string
// for strings and bool for booleans; a boolean never satisfies a number
// field.
func ValidateContract(contract []config.ContractField, data map[string]any) error {
	for _, field := range contract {
		value, ok := data[field.Name]
		if !ok {
			return fmt.Errorf(
				"Missing required field '%s' (expected type: %s)", field.Name, field.Type)
		}

		switch field.Type {
		case config.FieldString:
			if _, ok := value.(string); !ok {
				return typeMismatch(field, value)
			}
		case config.FieldNumber:
			if _, isBool := value.(bool); isBool {
				return fmt.Errorf("Field '%s' must be a number, got boolean", field.Name)
			}
			if _, ok := value.(float64); !ok {
				return typeMismatch(field, value)
			}
		case config.FieldBoolean:
			if _, ok := value.(bool); !ok {
				return typeMismatch(field, value)
			}
		}
	}
	return nil
}

func typeMismatch(field config.ContractField, value any) error {
	return fmt.Errorf(
		"Field '%s' must be of type %s, got %s", field.Name, field.Type, jsonTypeName(value))
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
