package extraction_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"borderdesk/internal/domain"
	"borderdesk/internal/extraction"
	"borderdesk/internal/schema"
)

func testContext() domain.ManifestContext {
	return domain.ManifestContext{
		ManifestType:   "ACE",
		BorderCrossing: "Detroit-Windsor Ambassador Bridge",
		CrossingTime:   "2024-06-01T14:30",
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	text := "BILL OF LADING\nShipper: Acme Steel Ltd."

	first := extraction.BuildPrompt(text, testContext())
	second := extraction.BuildPrompt(text, testContext())

	assert.Equal(t, first.Text, second.Text)
}

func TestBuildPrompt_EmbedsContextVerbatim(t *testing.T) {
	p := extraction.BuildPrompt("irrelevant", testContext())

	assert.Contains(t, p.Text, "Manifest type: ACE")
	assert.Contains(t, p.Text, "Border crossing: Detroit-Windsor Ambassador Bridge")
	assert.Contains(t, p.Text, "Crossing time: 2024-06-01T14:30")
	assert.Equal(t, testContext(), p.Context)
}

func TestBuildPrompt_EmbedsTextUnmodified(t *testing.T) {
	text := "  Line one with trailing spaces   \n\tTabbed line\n\nSCN: 1234-ÄÖÜ  "

	p := extraction.BuildPrompt(text, testContext())

	assert.Contains(t, p.Text, text)
}

func TestBuildPrompt_EmbedsSharedSchema(t *testing.T) {
	p := extraction.BuildPrompt("text", testContext())

	assert.Contains(t, p.Text, schema.Indented())
	assert.True(t, strings.Index(p.Text, schema.Indented()) < strings.Index(p.Text, "DOCUMENT TEXT"))
}

func TestBuildPrompt_InstructsOmission(t *testing.T) {
	p := extraction.BuildPrompt("text", testContext())

	assert.Contains(t, p.Text, "omit the field")
	assert.Contains(t, p.Text, "Never guess")
}
