package filing

import (
	"fmt"

	"borderdesk/internal/domain"
)

var transitions = map[domain.ManifestStatus][]domain.ManifestStatus{
	domain.ManifestStatusDraft:      {domain.ManifestStatusValidated},
	domain.ManifestStatusValidated:  {domain.ManifestStatusDraft, domain.ManifestStatusSubmitting},
	domain.ManifestStatusSubmitting: {domain.ManifestStatusAccepted, domain.ManifestStatusRejected, domain.ManifestStatusError},
	domain.ManifestStatusRejected:   {domain.ManifestStatusDraft, domain.ManifestStatusValidated},
	domain.ManifestStatusError:      {domain.ManifestStatusDraft, domain.ManifestStatusValidated},
}

// Transition checks a manifest status change. Entering submitting from draft
// is ErrNotComplete; every other disallowed change is ErrInvalidTransition.
func Transition(from, to domain.ManifestStatus) error {
	if from == to && to != domain.ManifestStatusSubmitting {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	if to == domain.ManifestStatusSubmitting && from == domain.ManifestStatusDraft {
		return fmt.Errorf("%w: status is %s", domain.ErrNotComplete, from)
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
}
