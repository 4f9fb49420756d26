package network

// Bank is one institution's balance sheet.
// All four amounts are non-negative.
type Bank struct {
	OutsideAsset       float64
	InterbankAsset     float64 // claims on other banks
	OutsideLiability   float64
	InterbankLiability float64
}

// NewBank creates a bank from its balance-sheet amounts.
func NewBank(outsideAsset, interbankAsset, outsideLiability, interbankLiability float64) Bank {
	return Bank{
		OutsideAsset:       outsideAsset,
		InterbankAsset:     interbankAsset,
		OutsideLiability:   outsideLiability,
		InterbankLiability: interbankLiability,
	}
}

// Balance returns assets minus liabilities.
func (b Bank) Balance() float64 {
	return b.OutsideAsset + b.InterbankAsset - b.OutsideLiability - b.InterbankLiability
}

// Defaulted reports whether the bank is insolvent (balance <= 0).
func (b Bank) Defaulted() bool {
	return b.Balance() <= 0
}
