package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// StandardFXLot is the number of base-currency units in one standard FX lot
const StandardFXLot = 100_000

// UnitPolicy converts between lots and transacted units for an instrument
type UnitPolicy interface {
	// Units converts a size in lots to the quantity sent to the broker
	Units(inst Instrument, lots float64) float64

	// Lots converts a broker position back into lots
	Lots(inst Instrument, units float64) float64
}

// LotPolicy multiplies sizes by LotSize for the listed security types and
// passes every other instrument through unchanged
type LotPolicy struct {
	LotSize  float64
	SecTypes []string
}

// DefaultLotPolicy returns the FX convention: CASH instruments trade in 100,000-unit lots
func DefaultLotPolicy() LotPolicy {
	return LotPolicy{
		LotSize:  StandardFXLot,
		SecTypes: []string{SecTypeCash},
	}
}

func (p LotPolicy) applies(inst Instrument) bool {
	if p.LotSize <= 0 {
		return false
	}
	for _, st := range p.SecTypes {
		if strings.EqualFold(st, inst.SecType) {
			return true
		}
	}
	return false
}

// Units implements UnitPolicy
func (p LotPolicy) Units(inst Instrument, lots float64) float64 {
	if !p.applies(inst) {
		return lots
	}
	return decimal.NewFromFloat(lots).
		Mul(decimal.NewFromFloat(p.LotSize)).
		InexactFloat64()
}

// Lots implements UnitPolicy. Results are rounded to 2 decimal places.
func (p LotPolicy) Lots(inst Instrument, units float64) float64 {
	if !p.applies(inst) {
		return units
	}
	return decimal.NewFromFloat(units).
		Div(decimal.NewFromFloat(p.LotSize)).
		Round(2).
		InexactFloat64()
}
