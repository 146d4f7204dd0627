package extraction

import (
	"strings"

	"borderdesk/internal/domain"
	"borderdesk/internal/port"
	"borderdesk/internal/schema"
)

// BuildPrompt assembles the extraction instructions for one document. The
// output depends only on its inputs: the same text and context always produce
// the same prompt.
func BuildPrompt(text string, mctx domain.ManifestContext) port.Prompt {
	var b strings.Builder

	b.WriteString("You are a customs manifest data extraction assistant. Read the shipping document below and extract the shipment and its commodities into a single JSON object.\n\n")

	b.WriteString("MANIFEST CONTEXT (supplied by the carrier, do not infer these from the document):\n")
	b.WriteString("- Manifest type: " + mctx.ManifestType + "\n")
	b.WriteString("- Border crossing: " + mctx.BorderCrossing + "\n")
	b.WriteString("- Crossing time: " + mctx.CrossingTime + "\n\n")

	b.WriteString(`IMPORTANT INSTRUCTIONS:
- Extract only facts stated in the document text. Never guess or invent values.
- If a value cannot be found, omit the field entirely. Do not use placeholders such as "N/A" or "unknown".
- List every commodity line in the "commodities" array, in document order.
- quantity and weight are plain numbers without units; put units in packaging_unit and weight_unit.
- Return ONLY the JSON object, with no markdown formatting, no code fences and no explanation.

The JSON object must conform to this JSON Schema:
`)
	b.WriteString(schema.Indented())
	b.WriteString("\n\nDOCUMENT TEXT:\n")
	b.WriteString("<<<\n")
	b.WriteString(text)
	b.WriteString("\n>>>\n")

	return port.Prompt{Text: b.String(), Context: mctx}
}
