package domain

// FileKind represents the document formats the text extractor accepts.
type FileKind string

const (
	FileKindPDF  FileKind = "pdf"
	FileKindDOCX FileKind = "docx"
	FileKindText FileKind = "text"
)

// AllowedExtensions maps lowercase file extensions (without dot) to FileKind.
var AllowedExtensions = map[string]FileKind{
	"pdf":  FileKindPDF,
	"docx": FileKindDOCX,
	"txt":  FileKindText,
	"text": FileKindText,
}

// ManifestType is the customs program a manifest is filed under.
type ManifestType string

const (
	ManifestTypeACE ManifestType = "ACE" // US Customs and Border Protection
	ManifestTypeACI ManifestType = "ACI" // Canada Border Services Agency
)

// TripDataType returns the filing-system "data" discriminator for a trip.
func (t ManifestType) TripDataType() string {
	return string(t) + "_TRIP"
}

// ShipmentDataType returns the filing-system "data" discriminator for a shipment.
func (t ManifestType) ShipmentDataType() string {
	return string(t) + "_SHIPMENT"
}

// ManifestStatus represents the lifecycle of a manifest from extraction to filing.
type ManifestStatus string

const (
	ManifestStatusDraft      ManifestStatus = "draft"
	ManifestStatusValidated  ManifestStatus = "validated"
	ManifestStatusSubmitting ManifestStatus = "submitting"
	ManifestStatusAccepted   ManifestStatus = "accepted"
	ManifestStatusRejected   ManifestStatus = "rejected"
	ManifestStatusError      ManifestStatus = "error"
)

// IsTerminal reports whether no further transition is expected without a new attempt.
func (s ManifestStatus) IsTerminal() bool {
	switch s {
	case ManifestStatusAccepted, ManifestStatusRejected, ManifestStatusError:
		return true
	}
	return false
}

// SubmissionStatus is the outcome of a single filing attempt.
type SubmissionStatus string

const (
	SubmissionStatusAccepted SubmissionStatus = "accepted"
	SubmissionStatusRejected SubmissionStatus = "rejected"
	SubmissionStatusError    SubmissionStatus = "error"
)

// FilingOperation is the operation code sent with a trip.
type FilingOperation string

const (
	FilingOperationCreate FilingOperation = "CREATE"
	FilingOperationUpdate FilingOperation = "UPDATE"
	FilingOperationDelete FilingOperation = "DELETE"
)

// ValidFilingOperations is the set of accepted operation codes.
var ValidFilingOperations = map[FilingOperation]bool{
	FilingOperationCreate: true,
	FilingOperationUpdate: true,
	FilingOperationDelete: true,
}
