package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// conversionFn converts a value from one specific unit to another.
type conversionFn func(float64) float64

// conversions maps "from:to" unit pairs to forward conversion functions.
// The reverse direction is derived: for linear scale factors f(x)=k*x the
// inverse is 1/f(1/x), which also happens to be exactly right for the
// factor form, so only one direction per pair needs a table entry.
// Temperature pairs are affine, so both directions are listed explicitly.
var conversions = map[string]conversionFn{
	// length
	"meter:feet":      func(v float64) float64 { return v * 3.28084 },
	"meter:kilometer": func(v float64) float64 { return v / 1000 },
	"meter:mile":      func(v float64) float64 { return v / 1609.344 },
	"kilometer:mile":  func(v float64) float64 { return v * 0.621371 },
	"inch:centimeter": func(v float64) float64 { return v * 2.54 },
	// weight
	"kilogram:pound": func(v float64) float64 { return v * 2.20462 },
	"gram:ounce":     func(v float64) float64 { return v * 0.035274 },
	// volume
	"liter:gallon": func(v float64) float64 { return v * 0.264172 },
	// currency, fixed illustrative rate
	"usd:eur": func(v float64) float64 { return v * 0.92 },
	// temperature (affine, both directions explicit)
	"celsius:fahrenheit": func(v float64) float64 { return v*9/5 + 32 },
	"fahrenheit:celsius": func(v float64) float64 { return (v - 32) * 5 / 9 },
	"celsius:kelvin":     func(v float64) float64 { return v + 273.15 },
	"kelvin:celsius":     func(v float64) float64 { return v - 273.15 },
}

// affinePairs marks unit pairs whose conversion is not a pure scale factor,
// so the 1/f(1/x) inversion trick must not be applied to them.
var affinePairs = map[string]bool{
	"celsius:fahrenheit": true,
	"fahrenheit:celsius": true,
	"celsius:kelvin":     true,
	"kelvin:celsius":     true,
}

// unitConverterTool converts values between common units of length, weight,
// volume and temperature. Input format: "<value> <from> to <to>".
type unitConverterTool struct{}

var _ Tool = (*unitConverterTool)(nil)

func newUnitConverterTool() *unitConverterTool { return &unitConverterTool{} }

// Name implements Tool.
func (u *unitConverterTool) Name() string { return "unit_converter" }

// Description implements Tool.
func (u *unitConverterTool) Description() string {
	return "Converts values between units. Input format: '<value> <from_unit> to <to_unit>', e.g. '1000 meter to kilometer'."
}

// Call implements Tool.
func (u *unitConverterTool) Call(_ context.Context, input string) (string, error) {
	value, from, to, err := parseConversion(input)
	if err != nil {
		return fmt.Sprintf("Error: %v. Expected format: '<value> <from_unit> to <to_unit>'.", err), nil
	}
	result, ok := convert(value, from, to)
	if !ok {
		return fmt.Sprintf("Conversion from %s to %s not supported.", from, to), nil
	}
	return fmt.Sprintf("%v %s = %.2f %s", value, from, result, to), nil
}

func parseConversion(input string) (value float64, from, to string, err error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(fields) != 4 || fields[2] != "to" {
		return 0, "", "", fmt.Errorf("could not parse %q", input)
	}
	value, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid number %q", fields[0])
	}
	return value, normalizeUnit(fields[1]), normalizeUnit(fields[3]), nil
}

// normalizeUnit folds plural forms so "meters" and "meter" hit the same
// table entry. "feet" is already the table spelling.
func normalizeUnit(u string) string {
	switch u {
	case "feet", "celsius", "kelvin":
		return u
	}
	return strings.TrimSuffix(u, "s")
}

func convert(value float64, from, to string) (float64, bool) {
	if from == to {
		return value, true
	}
	key := from + ":" + to
	if fn, ok := conversions[key]; ok {
		return fn(value), true
	}
	reverse := to + ":" + from
	if fn, ok := conversions[reverse]; ok && !affinePairs[reverse] {
		// Scale-factor pairs invert as 1/f(1/x).
		return 1 / fn(1/value), true
	}
	return 0, false
}
