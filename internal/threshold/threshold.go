// Package threshold decides which telemetry readings are worth persisting
// and whether a nutrient concentration is outside its acceptable band.
package threshold

import (
	"encoding/json"
	"fmt"
	"math"
)

// Reading is the subset of a telemetry sample the evaluator compares.
type Reading struct {
	PH   float64
	PPM  float64
	Temp float64
}

// Band is an inclusive acceptable concentration range.
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Unbounded is the fallback band that never reports danger.
var Unbounded = Band{Low: 0, High: math.Inf(1)}

// Contains reports whether ppm lies within the band. Boundaries are inside.
func (b Band) Contains(ppm float64) bool {
	return ppm >= b.Low && ppm <= b.High
}

// MarshalJSON encodes an unbounded High as null.
func (b Band) MarshalJSON() ([]byte, error) {
	out := struct {
		Low  float64  `json:"low"`
		High *float64 `json:"high"`
	}{Low: b.Low}
	if !math.IsInf(b.High, 1) {
		out.High = &b.High
	}
	return json.Marshal(out)
}

func (b Band) String() string {
	if math.IsInf(b.High, 1) {
		return fmt.Sprintf("%g-inf", b.Low)
	}
	return fmt.Sprintf("%g-%g", b.Low, b.High)
}

// Danger is the result of a band check.
type Danger struct {
	IsDanger bool `json:"isDanger"`
	Band     Band `json:"band"`
}

// Evaluator holds the notable-change thresholds and band policy.
type Evaluator struct {
	PHDelta       float64
	PPMDelta      float64
	TempDelta     float64
	BandHalfWidth float64
	DefaultBand   Band
}

// ShouldPersist reports whether next differs enough from the last stored
// reading to be stored. With no stored reading it is always true.
func (e Evaluator) ShouldPersist(next Reading, last *Reading) bool {
	if last == nil {
		return true
	}
	return math.Abs(next.PH-last.PH) >= e.PHDelta ||
		math.Abs(next.PPM-last.PPM) >= e.PPMDelta ||
		math.Abs(next.Temp-last.Temp) >= e.TempDelta
}

// BandFor returns the acceptable band around target, or the default band
// when target is nil.
func (e Evaluator) BandFor(target *float64) Band {
	if target == nil {
		return e.DefaultBand
	}
	return Band{Low: *target - e.BandHalfWidth, High: *target + e.BandHalfWidth}
}

// EvaluateDanger checks ppm against the band of the active cycle's target.
func (e Evaluator) EvaluateDanger(ppm float64, target *float64) Danger {
	band := e.BandFor(target)
	return Danger{IsDanger: !band.Contains(ppm), Band: band}
}
