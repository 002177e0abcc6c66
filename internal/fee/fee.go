// Package fee prices the shareholder and director rosters of a registration.
package fee

import (
	"github.com/shopspring/decimal"

	"incorpapi/internal/model"
)

// Compute returns the additional fees for a roster under the given rates.
// Every member is charged; a director who is also a shareholder is charged on
// both rosters because each roster is a separate statutory filing.
func Compute(shareholders []model.Shareholder, directors []model.Director, rates model.FeeRates) model.FeeBreakdown {
	var (
		localNatural, localEntity, foreignNatural, foreignEntity int
		localDirectors, foreignDirectors                         int
	)

	for _, s := range shareholders {
		foreign := s.Residency == model.ResidencyForeign
		entity := s.Type == model.LegalTypeLegalEntity
		switch {
		case !foreign && !entity:
			localNatural++
		case !foreign && entity:
			localEntity++
		case foreign && !entity:
			foreignNatural++
		default:
			foreignEntity++
		}
	}

	for _, d := range directors {
		if d.Residency == model.ResidencyForeign {
			foreignDirectors++
		} else {
			localDirectors++
		}
	}

	var out model.FeeBreakdown

	out.Shareholders.LocalNatural = line(localNatural, rates.ShareholderLocalNatural)
	out.Shareholders.LocalEntity = line(localEntity, rates.ShareholderLocalEntity)
	out.Shareholders.ForeignNatural = line(foreignNatural, rates.ShareholderForeignNatural)
	out.Shareholders.ForeignEntity = line(foreignEntity, rates.ShareholderForeignEntity)
	out.Shareholders.Total = sum(
		out.Shareholders.LocalNatural,
		out.Shareholders.LocalEntity,
		out.Shareholders.ForeignNatural,
		out.Shareholders.ForeignEntity,
	)

	out.Directors.Local = line(localDirectors, rates.DirectorLocal)
	out.Directors.Foreign = line(foreignDirectors, rates.DirectorForeign)
	out.Directors.Total = sum(out.Directors.Local, out.Directors.Foreign)

	out.Total = out.Shareholders.Total.Add(out.Directors.Total)
	return out
}

func line(count int, rate decimal.Decimal) model.FeeLine {
	return model.FeeLine{
		Count:    count,
		Rate:     rate,
		Subtotal: rate.Mul(decimal.NewFromInt(int64(count))),
	}
}

func sum(lines ...model.FeeLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}
