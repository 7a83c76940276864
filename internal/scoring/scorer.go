package scoring

import (
	"math"

	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"trading-signal-bot/internal/marketdata"
)

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	adxPeriod  = 14
	atrPeriod  = 14

	pivotLookback  = 20
	swingLookback  = 10
	volumeLookback = 20
	avgATRLookback = 20

	// Indicator weights for the composite score.
	weightRSI        = 0.25
	weightMACD       = 0.30
	weightADX        = 0.20
	weightSupertrend = 0.25

	neutralScore = 50.0
)

// IntervalScore holds all per-interval analysis output. Scores are on a
// 0-100 scale with 50 neutral.
type IntervalScore struct {
	Interval string `json:"interval"`

	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	ADX        float64 `json:"adx"`
	Supertrend float64 `json:"supertrend"`
	Score      float64 `json:"score"` // composite of the four above

	// ADXRaw is the unscored ADX value, used by the breakout detector's
	// rising-trend test and the choppy-market filter.
	ADXRaw float64 `json:"adx_raw"`

	Price      float64 `json:"price"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	SwingLow   float64 `json:"swing_low"`
	SwingHigh  float64 `json:"swing_high"`

	ATR    float64 `json:"atr"`
	AvgATR float64 `json:"avg_atr"`

	VolumeRatio float64 `json:"volume_ratio"`
	HighVolume  bool    `json:"high_volume"`
	RSIExtreme  bool    `json:"rsi_extreme"`

	// Supertrend line of the primary (7, 3.0) parameter set, a price
	// level usable for stop placement. 0 when unavailable.
	SupertrendLevel float64 `json:"supertrend_level"`
}

// Scorer computes indicator scores from candle windows.
type Scorer struct {
	log zerolog.Logger
}

func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{log: log.With().Str("component", "scorer").Logger()}
}

// ScoreInterval scores one candle window. Indicators that cannot be
// computed from the available data degrade to their neutral value; the
// scorer never fails on short windows.
func (s *Scorer) ScoreInterval(interval string, candles []marketdata.Candle) IntervalScore {
	score := IntervalScore{
		Interval:   interval,
		RSI:        neutralScore,
		MACD:       neutralScore,
		ADX:        neutralScore,
		Supertrend: neutralScore,
	}
	if len(candles) == 0 {
		s.log.Debug().Str("interval", interval).Msg("no candles to score")
		score.Score = neutralScore
		return score
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	price := closes[len(closes)-1]
	score.Price = Round2(price)

	if rsi, ok := lastValue(safeRsi(closes, rsiPeriod)); ok {
		score.RSI = Round2(clamp(rsi, 0, 100))
		score.RSIExtreme = rsi > 70 || rsi < 30
	}

	score.MACD = Round2(macdScore(closes))

	rawADX, scoredADX := adxScore(highs, lows, closes)
	score.ADXRaw = Round2(rawADX)
	score.ADX = Round2(scoredADX)

	stScore, stLevel := supertrendScore(highs, lows, closes)
	score.Supertrend = stScore
	score.SupertrendLevel = Round2(stLevel)

	score.Score = Round2(weightRSI*score.RSI + weightMACD*score.MACD +
		weightADX*score.ADX + weightSupertrend*score.Supertrend)

	score.Support, score.Resistance = pivotLevels(highs, lows, closes)
	score.SwingLow, score.SwingHigh = swingLevels(highs, lows)
	score.ATR, score.AvgATR = atrLevels(highs, lows, closes)
	score.VolumeRatio, score.HighVolume = volumeProfile(volumes)

	return score
}

// macdScore maps the MACD histogram onto 0-100 around the midpoint.
func macdScore(closes []float64) float64 {
	if len(closes) < macdSlow+macdSignal {
		return neutralScore
	}
	_, _, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	h, ok := lastValue(hist)
	if !ok {
		return neutralScore
	}
	return clamp(neutralScore+h*5, 0, 100)
}

// adxScore folds trend strength and DI direction onto 0-100. ADX under
// 25 reads as no trend and stays neutral. The raw ADX value is returned
// alongside the score for the rising-trend test and the choppy filter.
func adxScore(highs, lows, closes []float64) (float64, float64) {
	if len(closes) < 2*adxPeriod {
		return 0, neutralScore
	}
	adx, ok := lastValue(talib.Adx(highs, lows, closes, adxPeriod))
	if !ok {
		return 0, neutralScore
	}
	if adx < 25 {
		return adx, neutralScore
	}

	magnitude := math.Min(100, (adx-25)*4)

	plusDI, okP := lastValue(talib.PlusDI(highs, lows, closes, adxPeriod))
	minusDI, okM := lastValue(talib.MinusDI(highs, lows, closes, adxPeriod))
	if !okP || !okM {
		return adx, neutralScore
	}

	if plusDI > minusDI {
		return adx, neutralScore + magnitude/2
	}
	return adx, neutralScore - magnitude/2
}

// supertrendScore combines two parameter sets. Agreement is decisive,
// disagreement is neutral. The returned level is the primary set's line.
func supertrendScore(highs, lows, closes []float64) (float64, float64) {
	lineA, dirA := Supertrend(highs, lows, closes, 7, 3.0)
	_, dirB := Supertrend(highs, lows, closes, 11, 2.0)

	switch {
	case dirA > 0 && dirB > 0:
		return 100, lineA
	case dirA < 0 && dirB < 0:
		return 0, lineA
	default:
		return neutralScore, lineA
	}
}

func safeRsi(closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	return talib.Rsi(closes, period)
}

// lastValue returns the newest non-NaN sample. Zero is a legitimate
// indicator value; callers guard their window lengths so talib's
// zero-filled warmup never reaches the tail of the series.
func lastValue(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if v := values[i]; !math.IsNaN(v) {
			return v, true
		}
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// Round2 rounds price-like values to 2 decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 rounds ATR and quantity values to 4 decimals.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
