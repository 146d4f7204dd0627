package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"borderdesk/internal/schema"
)

func TestIndented_IsStable(t *testing.T) {
	assert.Equal(t, schema.Indented(), schema.Indented())
}

func TestIndented_ContainsFixedFieldNames(t *testing.T) {
	out := schema.Indented()
	for _, name := range []string{
		"shipment_control_number", "province_of_loading", "shipper", "consignee",
		"postal_code", "commodities", "description", "quantity", "packaging_unit",
		"weight", "weight_unit",
	} {
		assert.Contains(t, out, `"`+name+`"`)
	}
}

func TestCompiled_AcceptsWellFormedManifest(t *testing.T) {
	sch, err := schema.Compiled()
	require.NoError(t, err)

	var v any
	require.NoError(t, json.Unmarshal([]byte(`{
		"shipment": {
			"shipment_control_number": "ABCD1234",
			"shipper": {"name": "Acme Steel"},
			"consignee": {"name": "Northern Fab"}
		},
		"commodities": [{"description": "steel coils", "quantity": 5}]
	}`), &v))

	assert.NoError(t, sch.Validate(v))
}

func TestCompiled_RejectsNegativeWeight(t *testing.T) {
	sch, err := schema.Compiled()
	require.NoError(t, err)

	var v any
	require.NoError(t, json.Unmarshal([]byte(`{
		"shipment": {
			"shipment_control_number": "ABCD1234",
			"shipper": {"name": "Acme Steel"},
			"consignee": {"name": "Northern Fab"}
		},
		"commodities": [{"description": "steel coils", "quantity": 5, "weight": -1}]
	}`), &v))

	assert.Error(t, sch.Validate(v))
}

func TestDocument_ReturnsFreshCopy(t *testing.T) {
	a := schema.Document()
	a["title"] = "mutated"
	assert.Equal(t, "CustomsManifest", schema.Document()["title"])
}
