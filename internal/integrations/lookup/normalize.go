package lookup

import (
	"encoding/json"
	"errors"
	"fmt"

	"vehicle-bot/internal/domain"
)

const responseKey = "response"

// Keys removed from the provider payload before it is formatted or logged.
var (
	deniedTopLevel = map[string]struct{}{
		"transKey":    {},
		"message":     {},
		"description": {},
	}
	deniedResponse = map[string]struct{}{
		"transKey":              {},
		"statusDesc":            {},
		"dataStatus":            {},
		"eDate":                 {},
		"lmDate":                {},
		"manufacturerMonthYear": {},
		"manufacturerYear":      {},
		"vehicleAge":            {},
		"puccNumber":            {},
		"puccValidUpto":         {},
		"presentAddress":        {},
		"insuranceExpired":      {},
		"status":                {},
	}
)

// Normalize builds a NormalizedRecord from a decoded provider payload. raw is
// not modified; the returned document shares no maps or slices with it.
func Normalize(raw map[string]any) (domain.NormalizedRecord, error) {
	doc := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, denied := deniedTopLevel[k]; denied {
			continue
		}
		doc[k] = deepCopy(v)
	}

	resp, ok := doc[responseKey].(map[string]any)
	if !ok {
		return domain.NormalizedRecord{}, errors.New("normalize: payload has no response object")
	}
	for k := range deniedResponse {
		delete(resp, k)
	}

	vehicle, err := decodeVehicle(resp)
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	return domain.NormalizedRecord{Document: doc, Vehicle: vehicle}, nil
}

func decodeVehicle(resp map[string]any) (domain.VehicleDetails, error) {
	buf, err := json.Marshal(resp)
	if err != nil {
		return domain.VehicleDetails{}, fmt.Errorf("normalize: encode response: %w", err)
	}
	var v domain.VehicleDetails
	if err := json.Unmarshal(buf, &v); err != nil {
		return domain.VehicleDetails{}, fmt.Errorf("normalize: decode response: %w", err)
	}
	return v, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = deepCopy(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = deepCopy(inner)
		}
		return out
	default:
		return v
	}
}
