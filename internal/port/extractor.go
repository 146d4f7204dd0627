package port

import (
	"context"

	"borderdesk/internal/domain"
)

// Prompt is the full instruction text sent to a language model, plus the
// context values it was built from.
type Prompt struct {
	Text    string
	Context domain.ManifestContext
}

// StructuredExtractor turns a prompt into one untrusted JSON manifest object.
type StructuredExtractor interface {
	Extract(ctx context.Context, prompt Prompt) (*domain.ExtractedManifest, error)
}

// TextExtractor converts an uploaded document into plain text.
type TextExtractor interface {
	ExtractDocument(doc domain.RawDocument) (string, error)
}
