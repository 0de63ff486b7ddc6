package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text is an optional provider field. Providers send the same field as a
// string, a number or null depending on the record, so Text accepts any JSON
// scalar and keeps its literal form. Objects and arrays have no display form
// and decode as an absent field.
type Text struct {
	Value string
	Valid bool
}

// NewText returns a present field.
func NewText(v string) Text {
	return Text{Value: v, Valid: true}
}

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = Text{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = NewText(s)
		return nil
	case b[0] == '{' || b[0] == '[':
		*t = Text{}
		return nil
	default:
		*t = NewText(string(b))
		return nil
	}
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// Present reports whether the field carries a non-blank value.
func (t Text) Present() bool {
	return t.Valid && strings.TrimSpace(t.Value) != ""
}

// VehicleDetails is the typed view of the provider's `response` object.
type VehicleDetails struct {
	RegNo                 Text `json:"regNo"`
	RTOCode               Text `json:"rtoCode"`
	RegAuthority          Text `json:"regAuthority"`
	Chassis               Text `json:"chassis"`
	Engine                Text `json:"engine"`
	RegDate               Text `json:"regDate"`
	PermAddress           Text `json:"permAddress"`
	Pincode               Text `json:"pincode"`
	VehicleClass          Text `json:"vehicleClass"`
	Manufacturer          Text `json:"manufacturer"`
	Model                 Text `json:"vehicle"`
	VehicleType           Text `json:"vehicleType"`
	Variant               Text `json:"variant"`
	FuelType              Text `json:"fuelType"`
	CubicCapacity         Text `json:"cubicCapacity"`
	Owner                 Text `json:"owner"`
	OwnerFatherName       Text `json:"ownerFatherName"`
	FinancerName          Text `json:"financerName"`
	InsuranceCompanyName  Text `json:"insuranceCompanyName"`
	InsurancePolicyNumber Text `json:"insurancePolicyNumber"`
	InsuranceUpto         Text `json:"insuranceUpto"`
}

// NormalizedRecord is a lookup result with provider-internal fields removed.
// Document is a private copy of the provider payload, Vehicle its typed view.
type NormalizedRecord struct {
	Document map[string]any
	Vehicle  VehicleDetails
}
