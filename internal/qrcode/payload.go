// Package qrcode issues, registers, and validates signed QR payloads for
// vehicles and households.
package qrcode

import (
	"encoding/json"
	"fmt"

	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// Payload kinds as they appear on the wire.
const (
	TypeVehicle   = "vehicle"
	TypeHousehold = "household"
)

// Payload is the signed content embedded in a QR code. Vehicle payloads
// carry the plate number in clear; household payloads carry only a
// truncated HMAC of the national ID so the raw ID never leaves the server.
type Payload struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Plate      string `json:"plate,omitempty"`
	NationalID string `json:"nationalId,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	Hash       string `json:"hash"`
	Signature  string `json:"signature"`
}

// boundValue returns the identity field covered by the signature.
func (p *Payload) boundValue() string {
	if p.Type == TypeHousehold {
		return p.NationalID
	}
	return p.Plate
}

// signingString is the exact ordered concatenation the signature covers.
func (p *Payload) signingString() string {
	return fmt.Sprintf("%s:%s:%s:%d:%s", p.Type, p.ID, p.boundValue(), p.Timestamp, p.Hash)
}

// registryEntityType maps the wire type to the registry constant.
func (p *Payload) registryEntityType() string {
	if p.Type == TypeHousehold {
		return models.QREntityHousehold
	}
	return models.QREntityVehicle
}

// Parse decodes a raw QR content string. It returns nil when the content is
// not JSON, misses a required field, or carries an unknown type.
func Parse(content string) *Payload {
	var p Payload
	if errUnmarshal := json.Unmarshal([]byte(content), &p); errUnmarshal != nil {
		return nil
	}
	if p.Type == "" || p.ID == "" || p.Signature == "" {
		return nil
	}
	if p.Type != TypeVehicle && p.Type != TypeHousehold {
		return nil
	}
	return &p
}
