package topology

import (
	"errors"
	"fmt"
)

// ErrOutOfAlphabet is returned when decoding a rune outside the 256-symbol alphabet.
var ErrOutOfAlphabet = errors.New("symbol outside topology alphabet")

// #region constants
const (
	// Base is the first symbol of the alphabet (blank 8-dot braille cell).
	Base rune = 0x2800

	MaxKappa = 7
	MaxSigma = 7
	MaxDelta = 3

	// Size is the number of symbols in the alphabet.
	Size = (MaxKappa + 1) * (MaxSigma + 1) * (MaxDelta + 1)
)

// #endregion constants

// #region coordinate
// Coordinate is a point in the fitness topology: deformation, volatility and drift.
type Coordinate struct {
	Kappa int `json:"kappa"` // 0..7
	Sigma int `json:"sigma"` // 0..7
	Delta int `json:"delta"` // 0..3
}

// NewCoordinate validates the bounds and returns the coordinate.
func NewCoordinate(kappa, sigma, delta int) (Coordinate, error) {
	c := Coordinate{Kappa: kappa, Sigma: sigma, Delta: delta}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports whether every field is within its bound.
func (c Coordinate) Validate() error {
	if c.Kappa < 0 || c.Kappa > MaxKappa {
		return fmt.Errorf("kappa %d outside 0..%d", c.Kappa, MaxKappa)
	}
	if c.Sigma < 0 || c.Sigma > MaxSigma {
		return fmt.Errorf("sigma %d outside 0..%d", c.Sigma, MaxSigma)
	}
	if c.Delta < 0 || c.Delta > MaxDelta {
		return fmt.Errorf("delta %d outside 0..%d", c.Delta, MaxDelta)
	}
	return nil
}

// #endregion coordinate

// #region codec

// Encode packs the coordinate into one symbol: Base + κ + σ<<3 + δ<<6.
// An out-of-range coordinate is a programming error and panics; the codec never clamps.
func Encode(c Coordinate) rune {
	if err := c.Validate(); err != nil {
		panic("topology: encode: " + err.Error())
	}
	return Base + rune(c.Kappa) + rune(c.Sigma)<<3 + rune(c.Delta)<<6
}

// Decode unpacks a symbol produced by Encode.
func Decode(r rune) (Coordinate, error) {
	if !InAlphabet(r) {
		return Coordinate{}, fmt.Errorf("%w: %U", ErrOutOfAlphabet, r)
	}
	off := int(r - Base)
	return Coordinate{
		Kappa: off & 0b111,
		Sigma: (off >> 3) & 0b111,
		Delta: (off >> 6) & 0b11,
	}, nil
}

// InAlphabet reports whether r is one of the 256 symbols.
func InAlphabet(r rune) bool {
	return r >= Base && r < Base+Size
}

// Alphabet returns every symbol in code point order.
func Alphabet() []rune {
	out := make([]rune, Size)
	for i := range out {
		out[i] = Base + rune(i)
	}
	return out
}

// #endregion codec

// #region interpret

var (
	kappaLabels = [...]string{"minimal deformation", "slight deformation", "slight deformation", "moderate deformation",
		"moderate deformation", "significant deformation", "significant deformation", "maximum deformation"}
	sigmaLabels = [...]string{"rock solid", "stable", "stable", "moderate volatility",
		"moderate volatility", "high volatility", "high volatility", "extremely volatile"}
	deltaLabels = [...]string{"neutral", "positive drift", "negative drift", "critical"}
)

// KappaBand, SigmaBand and DeltaBand name the interpretation band of each axis.
// They index locale phrase tables, so they must stay stable.
func KappaBand(k int) int { return band8(k) }
func SigmaBand(s int) int { return band8(s) }
func DeltaBand(d int) int { return d }

// band8 folds 0..7 into 5 bands: 0, 1-2, 3-4, 5-6, 7.
func band8(v int) int {
	switch {
	case v <= 0:
		return 0
	case v <= 2:
		return 1
	case v <= 4:
		return 2
	case v <= 6:
		return 3
	}
	return 4
}

// Interpret returns a plain English reading of the coordinate.
func (c Coordinate) Interpret() string {
	if c.Validate() != nil {
		return "invalid coordinate"
	}
	return fmt.Sprintf("%s, %s, %s", kappaLabels[c.Kappa], sigmaLabels[c.Sigma], deltaLabels[c.Delta])
}

// String renders the coordinate as "κ3 σ1 δ1".
func (c Coordinate) String() string {
	return fmt.Sprintf("κ%d σ%d δ%d", c.Kappa, c.Sigma, c.Delta)
}

// #endregion interpret
