package model

import (
	"encoding/json"
	"fmt"
)

// Residency of a shareholder or director. An empty value decodes as local.
type Residency string

const (
	ResidencyLocal   Residency = "local"
	ResidencyForeign Residency = "foreign"
)

func (r *Residency) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch Residency(raw) {
	case "", ResidencyLocal:
		*r = ResidencyLocal
	case ResidencyForeign:
		*r = ResidencyForeign
	default:
		return fmt.Errorf("unknown residency %q", raw)
	}
	return nil
}

// LegalType of a shareholder. An empty value decodes as natural-person.
type LegalType string

const (
	LegalTypeNaturalPerson LegalType = "natural-person"
	LegalTypeLegalEntity   LegalType = "legal-entity"
)

func (t *LegalType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch LegalType(raw) {
	case "", LegalTypeNaturalPerson:
		*t = LegalTypeNaturalPerson
	case LegalTypeLegalEntity:
		*t = LegalTypeLegalEntity
	default:
		return fmt.Errorf("unknown shareholder type %q", raw)
	}
	return nil
}

type Shareholder struct {
	ID         string    `json:"id,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Residency  Residency `json:"residency"`
	Type       LegalType `json:"type"`
	Shares     int64     `json:"shares,omitempty"`
	IsDirector bool      `json:"isDirector,omitempty"`
}

// Director is a statutory director. FromShareholder holds the ID of the shareholder
// record the same person was entered under, if any.
type Director struct {
	ID              string    `json:"id,omitempty"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Residency       Residency `json:"residency"`
	FromShareholder string    `json:"fromShareholder,omitempty"`
}
