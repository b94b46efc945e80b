package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiledSchema validates backend payloads before they are decoded, so a
// malformed response surfaces as an API error instead of a zero-valued struct.
type compiledSchema struct {
	name   string
	schema *jsonschema.Schema
}

func compileSchema(name string, schemaMap map[string]any) (*compiledSchema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &compiledSchema{name: name, schema: s}, nil
}

func mustCompileSchema(name string, schemaMap map[string]any) *compiledSchema {
	s, err := compileSchema(name, schemaMap)
	if err != nil {
		panic(fmt.Sprintf("api: schema %s: %v", name, err))
	}
	return s
}

// Validate checks data against the schema.
func (s *compiledSchema) Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match %s: %w", s.name, err)
	}
	return nil
}

var (
	str      = map[string]any{"type": "string"}
	strArray = map[string]any{"type": "array", "items": str}
	boxProps = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"page":   map[string]any{"type": "integer"},
			"left":   map[string]any{"type": "number"},
			"top":    map[string]any{"type": "number"},
			"width":  map[string]any{"type": "number"},
			"height": map[string]any{"type": "number"},
		},
	}
	extractionSchema = map[string]any{
		"type":     "object",
		"required": []string{"value"},
		"properties": map[string]any{
			"entity":     str,
			"value":      str,
			"box":        boxProps,
			"candidates": str,
		},
	}
	extractionMap = map[string]any{
		"type":                 "object",
		"additionalProperties": extractionSchema,
	}
)

var tokenSchema = mustCompileSchema("token.json", map[string]any{
	"type":     "object",
	"required": []string{"access_token"},
	"properties": map[string]any{
		"access_token": map[string]any{"type": "string", "minLength": 1},
		"token_type":   str,
		"expires_in":   map[string]any{"type": "integer"},
		"scope":        str,
	},
})

var providersSchema = mustCompileSchema("payment_providers.json", map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"id", "name"},
		"properties": map[string]any{
			"id":                         map[string]any{"type": "string", "minLength": 1},
			"name":                       str,
			"iconLocation":               str,
			"appSchemeIOS":               str,
			"universalLinkIOS":           str,
			"gpcSupportedPlatforms":      strArray,
			"openWithSupportedPlatforms": strArray,
			"index":                      map[string]any{"type": []string{"integer", "null"}},
			"colors": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"background": str,
					"text":       str,
				},
			},
			"minAppVersion": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ios":     str,
					"android": str,
				},
			},
		},
	},
})

var paymentRequestSchema = mustCompileSchema("payment_request.json", map[string]any{
	"type":     "object",
	"required": []string{"paymentProvider", "recipient", "iban", "amount", "purpose"},
	"properties": map[string]any{
		"paymentProvider": str,
		"recipient":       str,
		"iban":            str,
		"bic":             str,
		"amount":          map[string]any{"type": "string", "pattern": `^[0-9]+(\.[0-9]+)?(:[A-Z]{3})?$`},
		"purpose":         str,
		"status":          str,
		"requesterUri":    str,
		"createdAt":       str,
	},
})

var createdRequestSchema = mustCompileSchema("created_request.json", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id": map[string]any{"type": "string", "minLength": 1},
	},
})

var documentSchema = mustCompileSchema("document.json", map[string]any{
	"type":     "object",
	"required": []string{"id"},
	"properties": map[string]any{
		"id":                   map[string]any{"type": "string", "minLength": 1},
		"name":                 str,
		"pageCount":            map[string]any{"type": "integer"},
		"progress":             str,
		"sourceClassification": str,
		"creationDate":         map[string]any{"type": "integer"},
		"_links": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"document":    str,
				"extractions": str,
				"processed":   str,
				"pages":       str,
			},
		},
	},
})

var extractionsSchema = mustCompileSchema("extractions.json", map[string]any{
	"type":     "object",
	"required": []string{"extractions"},
	"properties": map[string]any{
		"extractions": extractionMap,
		"compoundExtractions": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":  "array",
				"items": extractionMap,
			},
		},
	},
})
