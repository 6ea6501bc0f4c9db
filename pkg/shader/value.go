package shader

import (
	"encoding/json"
	"fmt"
)

// Value is a static port value: either a scalar or an RGBA color.
// The zero value is the scalar 0.
type Value struct {
	V     [4]float64
	Color bool
}

// Scalar returns a scalar value.
func Scalar(v float64) Value { return Value{V: [4]float64{v, 0, 0, 0}} }

// RGBA returns a color value.
func RGBA(r, g, b, a float64) Value { return Value{V: [4]float64{r, g, b, a}, Color: true} }

// AsColor returns the value as RGBA. Scalars broadcast to the three color
// channels with alpha 1.
func (v Value) AsColor() [4]float64 {
	if v.Color {
		return v.V
	}
	return [4]float64{v.V[0], v.V[0], v.V[0], 1}
}

// AsScalar returns the value as a scalar. Colors reduce to their luma.
func (v Value) AsScalar() float64 {
	if !v.Color {
		return v.V[0]
	}
	return 0.2126*v.V[0] + 0.7152*v.V[1] + 0.0722*v.V[2]
}

func (v Value) String() string {
	if v.Color {
		return fmt.Sprintf("(%.3g, %.3g, %.3g, %.3g)", v.V[0], v.V[1], v.V[2], v.V[3])
	}
	return fmt.Sprintf("%.3g", v.V[0])
}

// MarshalJSON encodes scalars as numbers and colors as 4-element arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Color {
		return json.Marshal(v.V)
	}
	return json.Marshal(v.V[0])
}

// UnmarshalJSON accepts a number, or an array of 3 or 4 numbers (alpha defaults to 1).
func (v *Value) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Scalar(f)
		return nil
	}
	var arr []float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("value must be a number or color array: %w", err)
	}
	switch len(arr) {
	case 3:
		*v = RGBA(arr[0], arr[1], arr[2], 1)
	case 4:
		*v = RGBA(arr[0], arr[1], arr[2], arr[3])
	default:
		return fmt.Errorf("color must have 3 or 4 components, got %d", len(arr))
	}
	return nil
}
