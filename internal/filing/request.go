package filing

import (
	"fmt"
	"strings"
	"time"

	"borderdesk/internal/domain"
)

// BuildRequest assembles the single-use filing body for one trip carrying one
// shipment. newID supplies the trip send id first, then the shipment send id.
func BuildRequest(vm *domain.ValidatedManifest, manifestType domain.ManifestType, trip domain.TripMetadata, companyKey string, newID func() string) (*domain.SubmissionRequest, error) {
	if vm == nil {
		return nil, fmt.Errorf("%w: no manifest", domain.ErrNotComplete)
	}
	if !vm.Complete {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrNotComplete, strings.Join(vm.MissingFields, ", "))
	}
	if manifestType != domain.ManifestTypeACE && manifestType != domain.ManifestTypeACI {
		return nil, &domain.ContextError{FieldErrors: []domain.FieldError{
			{Field: "manifest_type", Message: "must be ACE or ACI", Code: "enum"},
		}}
	}
	if err := trip.Validate(); err != nil {
		return nil, err
	}

	op := trip.Operation
	if op == "" {
		op = domain.FilingOperationCreate
	}

	req := &domain.SubmissionRequest{
		Data:                     manifestType.TripDataType(),
		SendID:                   newID(),
		CompanyKey:               companyKey,
		Operation:                op,
		TripNumber:               strings.TrimSpace(trip.TripNumber),
		EstimatedArrivalDateTime: trip.EstimatedArrival.UTC().Format(time.RFC3339),
		AutoSend:                 trip.AutoSend,
	}
	// ACE names the port usPortOfArrival and sends no portOfEntry.
	port := strings.TrimSpace(trip.PortOfEntry)
	if manifestType == domain.ManifestTypeACE {
		req.USPortOfArrival = port
	} else {
		req.PortOfEntry = port
	}

	req.Shipments = []domain.FilingShipment{buildShipment(vm.Data, manifestType, op, companyKey, newID())}
	return req, nil
}

func buildShipment(md domain.ManifestData, manifestType domain.ManifestType, op domain.FilingOperation, companyKey, sendID string) domain.FilingShipment {
	commodities := make([]domain.FilingCommodity, len(md.Commodities))
	for i, c := range md.Commodities {
		commodities[i] = domain.FilingCommodity{
			Description:   c.Description,
			Quantity:      c.Quantity,
			PackagingUnit: c.PackagingUnit,
			Weight:        c.Weight,
			WeightUnit:    c.WeightUnit,
		}
	}
	s := md.Shipment
	return domain.FilingShipment{
		Data:                  manifestType.ShipmentDataType(),
		SendID:                sendID,
		CompanyKey:            companyKey,
		Operation:             op,
		Type:                  s.Type,
		ShipmentControlNumber: s.ShipmentControlNumber,
		ProvinceOfLoading:     s.ProvinceOfLoading,
		Shipper:               filingParty(s.Shipper),
		Consignee:             filingParty(s.Consignee),
		Commodities:           commodities,
	}
}

func filingParty(p domain.Party) domain.FilingParty {
	return domain.FilingParty{
		Name: p.Name,
		Address: domain.FilingAddress{
			AddressLine:   p.Address,
			City:          p.City,
			StateProvince: p.State,
			PostalCode:    p.PostalCode,
		},
	}
}
