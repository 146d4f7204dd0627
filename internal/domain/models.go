package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawDocument is an uploaded file before text extraction. It is never persisted.
type RawDocument struct {
	Filename string
	Content  []byte
}

// ManifestContext carries caller-supplied inputs that are not inferred from the document.
type ManifestContext struct {
	ManifestType   string `json:"manifest_type"`
	BorderCrossing string `json:"border_crossing"`
	CrossingTime   string `json:"crossing_time"`
}

// Type returns the normalized manifest type.
func (c ManifestContext) Type() ManifestType {
	return ManifestType(strings.ToUpper(strings.TrimSpace(c.ManifestType)))
}

// Validate checks that every context value is present and the manifest type is known.
func (c ManifestContext) Validate() error {
	var errs []FieldError
	switch c.Type() {
	case ManifestTypeACE, ManifestTypeACI:
	case "":
		errs = append(errs, FieldError{Field: "manifest_type", Message: "is required", Code: "required"})
	default:
		errs = append(errs, FieldError{Field: "manifest_type", Message: "must be ACE or ACI", Code: "enum"})
	}
	if strings.TrimSpace(c.BorderCrossing) == "" {
		errs = append(errs, FieldError{Field: "border_crossing", Message: "is required", Code: "required"})
	}
	if strings.TrimSpace(c.CrossingTime) == "" {
		errs = append(errs, FieldError{Field: "crossing_time", Message: "is required", Code: "required"})
	}
	if len(errs) > 0 {
		return &ContextError{FieldErrors: errs}
	}
	return nil
}

// ExtractedManifest is the model's structured output. It is untrusted until validated.
type ExtractedManifest struct {
	Data       json.RawMessage `json:"data"`
	ModelUsed  string          `json:"model_used"`
	PromptUsed string          `json:"-"`
}

// Party is a shipper or consignee address block.
type Party struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Shipment is the shipment block of a manifest.
type Shipment struct {
	ShipmentControlNumber string `json:"shipment_control_number"`
	Type                  string `json:"type"`
	ProvinceOfLoading     string `json:"province_of_loading"`
	Shipper               Party  `json:"shipper"`
	Consignee             Party  `json:"consignee"`
}

// Commodity is one line of goods carried by a shipment.
type Commodity struct {
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	PackagingUnit string  `json:"packaging_unit"`
	Weight        float64 `json:"weight"`
	WeightUnit    string  `json:"weight_unit"`
}

// ManifestData is the typed manifest shape shared by the prompt schema and the validator.
type ManifestData struct {
	Shipment    Shipment    `json:"shipment"`
	Commodities []Commodity `json:"commodities"`
}

// ValidatedManifest is ManifestData that satisfied every required-field and type
// constraint. Complete is false when optional fields were defaulted.
type ValidatedManifest struct {
	Data          ManifestData   `json:"data"`
	Complete      bool           `json:"complete"`
	MissingFields []string       `json:"missing_fields"`
	Status        ManifestStatus `json:"status"`
}

// ExtractionResult is the output of the extraction-only path.
type ExtractionResult struct {
	Filename       string          `json:"filename,omitempty"`
	ParsedData     json.RawMessage `json:"parsed_data"`
	ManifestType   string          `json:"manifest_type"`
	BorderCrossing string          `json:"border_crossing"`
	CrossingTime   string          `json:"crossing_time"`
	ModelUsed      string          `json:"model_used,omitempty"`
}

// TripMetadata is the trip information supplied alongside a submission.
type TripMetadata struct {
	TripNumber       string          `json:"trip_number"`
	PortOfEntry      string          `json:"port_of_entry"`
	EstimatedArrival time.Time       `json:"estimated_arrival"`
	Operation        FilingOperation `json:"operation"`
	AutoSend         bool            `json:"auto_send"`
}

// Validate checks the trip fields the filing system requires.
func (t TripMetadata) Validate() error {
	var errs []FieldError
	if strings.TrimSpace(t.TripNumber) == "" {
		errs = append(errs, FieldError{Field: "trip_number", Message: "is required", Code: "required"})
	}
	if strings.TrimSpace(t.PortOfEntry) == "" {
		errs = append(errs, FieldError{Field: "port_of_entry", Message: "is required", Code: "required"})
	}
	if t.EstimatedArrival.IsZero() {
		errs = append(errs, FieldError{Field: "estimated_arrival", Message: "is required", Code: "required"})
	}
	if t.Operation != "" && !ValidFilingOperations[t.Operation] {
		errs = append(errs, FieldError{Field: "operation", Message: "must be CREATE, UPDATE or DELETE", Code: "enum"})
	}
	if len(errs) > 0 {
		return &TripError{FieldErrors: errs}
	}
	return nil
}

// FilingAddress is the filing-system address shape.
type FilingAddress struct {
	AddressLine   string `json:"addressLine"`
	City          string `json:"city"`
	StateProvince string `json:"stateProvince"`
	PostalCode    string `json:"postalCode"`
}

// FilingParty is the filing-system shipper/consignee shape.
type FilingParty struct {
	Name    string        `json:"name"`
	Address FilingAddress `json:"address"`
}

// FilingCommodity is the filing-system commodity shape.
type FilingCommodity struct {
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	PackagingUnit string  `json:"packagingUnit"`
	Weight        float64 `json:"weight"`
	WeightUnit    string  `json:"weightUnit"`
}

// FilingShipment is one shipment inside a trip submission.
type FilingShipment struct {
	Data                  string            `json:"data"`
	SendID                string            `json:"sendId"`
	CompanyKey            string            `json:"companyKey"`
	Operation             FilingOperation   `json:"operation"`
	Type                  string            `json:"type"`
	ShipmentControlNumber string            `json:"shipmentControlNumber"`
	ProvinceOfLoading     string            `json:"provinceOfLoading,omitempty"`
	Shipper               FilingParty       `json:"shipper"`
	Consignee             FilingParty       `json:"consignee"`
	Commodities           []FilingCommodity `json:"commodities"`
}

// SubmissionRequest is the single-use body posted to the filing system.
type SubmissionRequest struct {
	Data                     string           `json:"data"`
	SendID                   string           `json:"sendId"`
	CompanyKey               string           `json:"companyKey"`
	Operation                FilingOperation  `json:"operation"`
	TripNumber               string           `json:"tripNumber"`
	PortOfEntry              string           `json:"portOfEntry,omitempty"`
	USPortOfArrival          string           `json:"usPortOfArrival,omitempty"`
	EstimatedArrivalDateTime string           `json:"estimatedArrivalDateTime"`
	Shipments                []FilingShipment `json:"shipments"`
	AutoSend                 bool             `json:"autoSend"`
}

// SubmissionResult is the interpreted outcome of one filing attempt.
type SubmissionResult struct {
	Status     SubmissionStatus `json:"status"`
	Errors     []FieldError     `json:"errors,omitempty"`
	Message    string           `json:"message,omitempty"`
	SendID     string           `json:"send_id"`
	StatusCode int              `json:"status_code,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Manifest is the persisted manifest record.
type Manifest struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	ManifestType   string          `db:"manifest_type" json:"manifest_type"`
	BorderCrossing string          `db:"border_crossing" json:"border_crossing"`
	CrossingTime   string          `db:"crossing_time" json:"crossing_time"`
	Data           json.RawMessage `db:"data" json:"data"`
	Complete       bool            `db:"complete" json:"complete"`
	MissingFields  json.RawMessage `db:"missing_fields" json:"missing_fields"`
	Status         ManifestStatus  `db:"status" json:"status"`
	TripNumber     *string         `db:"trip_number" json:"trip_number,omitempty"`
	LastSendID     *string         `db:"last_send_id" json:"last_send_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Context returns the manifest context the record was created with.
func (m *Manifest) Context() ManifestContext {
	return ManifestContext{
		ManifestType:   m.ManifestType,
		BorderCrossing: m.BorderCrossing,
		CrossingTime:   m.CrossingTime,
	}
}

// SubmissionAttempt records one filing attempt for audit.
type SubmissionAttempt struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	ManifestID uuid.UUID        `db:"manifest_id" json:"manifest_id"`
	SendID     string           `db:"send_id" json:"send_id"`
	Status     SubmissionStatus `db:"status" json:"status"`
	StatusCode int              `db:"status_code" json:"status_code"`
	Errors     json.RawMessage  `db:"errors" json:"errors"`
	ArchiveKey *string          `db:"archive_key" json:"archive_key,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}
