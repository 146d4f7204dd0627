// Package validator normalizes untrusted model output into a ValidatedManifest.
//
// Checks are driven by the same schema declaration the prompt embeds: a walker
// visits every declared field in sorted order and collects all violations,
// then the compiled schema runs as a final conformance pass. Validation is a
// pure function of its input.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"borderdesk/internal/domain"
	"borderdesk/internal/schema"
)

// Validate checks an extracted manifest and returns its normalized form.
// Violations are returned together as a *domain.SchemaViolationError.
func Validate(raw *domain.ExtractedManifest) (*domain.ValidatedManifest, error) {
	if raw == nil {
		return nil, violation(domain.FieldError{Field: "$", Message: "manifest is empty", Code: "required"})
	}
	return ValidateJSON(raw.Data)
}

// ValidateJSON validates a manifest given as raw JSON, such as reviewed data
// submitted back by an operator.
func ValidateJSON(data []byte) (*domain.ValidatedManifest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, violation(domain.FieldError{Field: "$", Message: "manifest is empty", Code: "required"})
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, violation(domain.FieldError{Field: "$", Message: "manifest is not valid JSON", Code: "type"})
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, violation(domain.FieldError{Field: "$", Message: "manifest must be a JSON object", Code: "type"})
	}
	root = pruneNulls(root).(map[string]any)

	w := &walker{}
	w.visit(schema.Document(), root, true, "", true)
	if len(w.errs) > 0 {
		return nil, violation(w.errs...)
	}

	if errs := conformance(root); len(errs) > 0 {
		return nil, violation(errs...)
	}

	normalized, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("validator.ValidateJSON: re-encoding manifest: %w", err)
	}
	var md domain.ManifestData
	if err := json.Unmarshal(normalized, &md); err != nil {
		return nil, violation(domain.FieldError{Field: "$", Message: err.Error(), Code: "type"})
	}
	trimManifest(&md)

	vm := &domain.ValidatedManifest{
		Data:          md,
		Complete:      len(w.missing) == 0,
		MissingFields: w.missing,
		Status:        domain.ManifestStatusDraft,
	}
	if vm.MissingFields == nil {
		vm.MissingFields = []string{}
	}
	if vm.Complete {
		vm.Status = domain.ManifestStatusValidated
	}
	return vm, nil
}

func violation(errs ...domain.FieldError) error {
	return &domain.SchemaViolationError{FieldErrors: errs}
}

// pruneNulls drops null-valued object members; a null is treated as absent.
func pruneNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = pruneNulls(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = pruneNulls(val)
		}
		return out
	default:
		return v
	}
}

// conformance runs the compiled schema and converts leaf failures to FieldErrors.
func conformance(doc map[string]any) []domain.FieldError {
	compiled, err := schema.Compiled()
	if err != nil {
		return []domain.FieldError{{Field: "$", Message: err.Error(), Code: "schema"}}
	}
	err = compiled.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []domain.FieldError{{Field: "$", Message: err.Error(), Code: "schema"}}
	}
	var out []domain.FieldError
	collectLeaves(ve, &out)
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]domain.FieldError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, domain.FieldError{Field: pointerToPath(ve.InstanceLocation), Message: ve.Message, Code: "schema"})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

// pointerToPath turns "/commodities/0/quantity" into "commodities[0].quantity".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return "$"
	}
	var b strings.Builder
	for _, seg := range strings.Split(ptr, "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func trimManifest(md *domain.ManifestData) {
	s := &md.Shipment
	s.ShipmentControlNumber = strings.TrimSpace(s.ShipmentControlNumber)
	s.Type = strings.TrimSpace(s.Type)
	s.ProvinceOfLoading = strings.TrimSpace(s.ProvinceOfLoading)
	trimParty(&s.Shipper)
	trimParty(&s.Consignee)
	for i := range md.Commodities {
		c := &md.Commodities[i]
		c.Description = strings.TrimSpace(c.Description)
		c.PackagingUnit = strings.TrimSpace(c.PackagingUnit)
		c.WeightUnit = strings.TrimSpace(c.WeightUnit)
	}
}

func trimParty(p *domain.Party) {
	p.Name = strings.TrimSpace(p.Name)
	p.Address = strings.TrimSpace(p.Address)
	p.City = strings.TrimSpace(p.City)
	p.State = strings.TrimSpace(p.State)
	p.PostalCode = strings.TrimSpace(p.PostalCode)
}
