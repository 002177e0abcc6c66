package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"incorpapi/internal/model"
)

// feeRatesFile is the on-disk shape of the rate table, e.g.
//
//	directors:
//	  local: 1000
//	  foreign: 1500
//	shareholders:
//	  local_natural: 500
//	  local_entity: 800
//	  foreign_natural: 1200
//	  foreign_entity: 2000
type feeRatesFile struct {
	Directors struct {
		Local   string `yaml:"local"`
		Foreign string `yaml:"foreign"`
	} `yaml:"directors"`
	Shareholders struct {
		LocalNatural   string `yaml:"local_natural"`
		LocalEntity    string `yaml:"local_entity"`
		ForeignNatural string `yaml:"foreign_natural"`
		ForeignEntity  string `yaml:"foreign_entity"`
	} `yaml:"shareholders"`
}

// LoadFeeRates reads the rate table from a YAML file. An empty path yields an
// all-zero table. Missing categories are zero; negative rates are rejected.
func LoadFeeRates(path string) (model.FeeRates, error) {
	if path == "" {
		return model.FeeRates{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return model.FeeRates{}, fmt.Errorf("config: read fee rates %s: %w", path, err)
	}
	return ParseFeeRates(b)
}

// ParseFeeRates decodes a YAML rate table.
func ParseFeeRates(b []byte) (model.FeeRates, error) {
	var raw feeRatesFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return model.FeeRates{}, fmt.Errorf("config: parse fee rates: %w", err)
	}

	var rates model.FeeRates
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"directors.local", raw.Directors.Local, &rates.DirectorLocal},
		{"directors.foreign", raw.Directors.Foreign, &rates.DirectorForeign},
		{"shareholders.local_natural", raw.Shareholders.LocalNatural, &rates.ShareholderLocalNatural},
		{"shareholders.local_entity", raw.Shareholders.LocalEntity, &rates.ShareholderLocalEntity},
		{"shareholders.foreign_natural", raw.Shareholders.ForeignNatural, &rates.ShareholderForeignNatural},
		{"shareholders.foreign_entity", raw.Shareholders.ForeignEntity, &rates.ShareholderForeignEntity},
	}
	for _, f := range fields {
		if f.raw == "" {
			*f.dst = decimal.Zero
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return model.FeeRates{}, fmt.Errorf("config: fee rate %s: %w", f.name, err)
		}
		if d.IsNegative() {
			return model.FeeRates{}, fmt.Errorf("config: fee rate %s must not be negative", f.name)
		}
		*f.dst = d
	}
	return rates, nil
}
