package strategy

// CheckMarketFilters rejects entry evaluation in conditions the rules
// are known to perform badly in. Returns false with a reason when the
// market is choppy (weak raw ADX) or the ATR has spiked far above its
// recent average. Position management is not affected by filters.
func CheckMarketFilters(rawADX, atr, avgATR, minADX, atrSpikeMultiplier float64) (bool, string) {
	if rawADX > 0 && rawADX < minADX {
		return false, "choppy market"
	}
	if avgATR > 0 && atr > atrSpikeMultiplier*avgATR {
		return false, "extreme volatility"
	}
	return true, ""
}
