// Package schema holds the one manifest schema declaration. The prompt builder
// embeds it verbatim and the validator checks model output against it, so the
// two can never drift apart.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceName = "manifest.schema.json"

// Document returns the manifest JSON Schema (draft 2020-12 subset) as a generic map.
// Each call returns a fresh copy.
func Document() map[string]any {
	return map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"title":    "CustomsManifest",
		"type":     "object",
		"required": []any{"shipment", "commodities"},
		"properties": map[string]any{
			"shipment": object(map[string]any{
				"shipment_control_number": requiredString("Carrier-assigned shipment control number (SCN/CCN)"),
				"type":                    optionalString("Shipment type, e.g. PAPS, PARS, NORMAL"),
				"province_of_loading":     optionalString("State or province where goods were loaded"),
				"shipper":                 party("Party shipping the goods"),
				"consignee":               party("Party receiving the goods"),
			}, "shipment_control_number", "shipper", "consignee"),
			"commodities": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": object(map[string]any{
					"description":    requiredString("Plain description of the goods"),
					"quantity":       map[string]any{"type": "number", "exclusiveMinimum": 0, "description": "Number of packages"},
					"packaging_unit": optionalString("Packaging unit, e.g. PLT, BOX, CTN"),
					"weight":         map[string]any{"type": "number", "minimum": 0, "description": "Gross weight"},
					"weight_unit":    optionalString("Weight unit, e.g. KG or LB"),
				}, "description", "quantity"),
			},
		},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   req,
	}
}

func party(description string) map[string]any {
	p := object(map[string]any{
		"name":        requiredString("Legal name"),
		"address":     optionalString("Street address line"),
		"city":        optionalString("City"),
		"state":       optionalString("State or province code"),
		"postal_code": optionalString("Postal or ZIP code"),
	}, "name")
	p["description"] = description
	return p
}

func requiredString(description string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": description}
}

func optionalString(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Indented returns the schema as indented JSON. encoding/json sorts map keys,
// so the output is byte-stable across calls.
func Indented() string {
	b, err := json.MarshalIndent(Document(), "", "  ")
	if err != nil {
		// Document is a static literal of JSON-safe values.
		panic(fmt.Sprintf("schema: marshal: %v", err))
	}
	return string(b)
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Compiled returns the compiled schema, compiling it on first use.
func Compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(resourceName, bytes.NewReader([]byte(Indented()))); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(resourceName)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}
