package domain

// Asset is a mutable registry entry for an on-chain asset.
// Created on first sighting in a swap with unknown decimals,
// mutated once the metadata service returns decimal precision.
type Asset struct {
	Unit            string // policy+name identifier, unique
	Policy          string // minting policy id (hex)
	NativeName      string // asset name within the policy (hex)
	Decimals        *int   // nil until metadata resolved
	MetadataFetched *bool  // nil = never attempted, false = attempted and missing
	PricingProvider string // provider code stamped on derived prices
}

// Priceable reports whether the asset's decimal precision is known,
// i.e. swaps touching it can be converted to prices.
func (a *Asset) Priceable() bool {
	return a != nil && a.MetadataFetched != nil && *a.MetadataFetched && a.Decimals != nil
}

// NewLovelaceAsset returns the registry entry for the native asset.
// Its precision is fixed by the ledger, no metadata fetch is needed.
func NewLovelaceAsset(provider string) *Asset {
	decimals := LovelaceDecimals
	fetched := true
	return &Asset{
		Unit:            LovelaceUnit,
		Policy:          "",
		NativeName:      LovelaceUnit,
		Decimals:        &decimals,
		MetadataFetched: &fetched,
		PricingProvider: provider,
	}
}
