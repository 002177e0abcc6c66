package model

import "github.com/shopspring/decimal"

// FeeRates is the per-head rate table owned by the settings store.
type FeeRates struct {
	DirectorLocal   decimal.Decimal `json:"directorLocal"`
	DirectorForeign decimal.Decimal `json:"directorForeign"`

	ShareholderLocalNatural   decimal.Decimal `json:"shareholderLocalNatural"`
	ShareholderLocalEntity    decimal.Decimal `json:"shareholderLocalEntity"`
	ShareholderForeignNatural decimal.Decimal `json:"shareholderForeignNatural"`
	ShareholderForeignEntity  decimal.Decimal `json:"shareholderForeignEntity"`
}

// FeeLine is the charge for one roster category.
type FeeLine struct {
	Count    int             `json:"count"`
	Rate     decimal.Decimal `json:"rate"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type ShareholderFees struct {
	LocalNatural   FeeLine         `json:"localNatural"`
	LocalEntity    FeeLine         `json:"localEntity"`
	ForeignNatural FeeLine         `json:"foreignNatural"`
	ForeignEntity  FeeLine         `json:"foreignEntity"`
	Total          decimal.Decimal `json:"total"`
}

type DirectorFees struct {
	Local   FeeLine         `json:"local"`
	Foreign FeeLine         `json:"foreign"`
	Total   decimal.Decimal `json:"total"`
}

// FeeBreakdown is a priced snapshot of a roster. It is cached on the registration
// for display and can always be recomputed from the roster and current rates.
type FeeBreakdown struct {
	Shareholders ShareholderFees `json:"shareholders"`
	Directors    DirectorFees    `json:"directors"`
	Total        decimal.Decimal `json:"total"`
}
