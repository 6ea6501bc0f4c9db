package bake

import (
	"fmt"
	"strings"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

// MapType names a baked texture map.
type MapType string

const (
	Albedo    MapType = "albedo"
	Normal    MapType = "normal"
	Roughness MapType = "roughness"
	Metallic  MapType = "metallic"
	AO        MapType = "ao"
	Emission  MapType = "emission"

	// MetallicRoughness is the packed texture: G = roughness, B = metallic.
	MetallicRoughness MapType = "metallic_roughness"
)

// StandardMaps are the maps baked per object in the standard stage, in
// bake order. AO is baked separately because it depends on the selection.
var StandardMaps = []MapType{Albedo, Normal, Roughness, Metallic, Emission}

// BakeableMaps lists every map that is baked from the scene, in bake order.
var BakeableMaps = []MapType{Albedo, Normal, Roughness, Metallic, AO, Emission}

// Mode is how a map is exposed to the bake pass.
type Mode int

const (
	// Workaround reroutes a shader input through an emission node and bakes
	// the emitted value.
	Workaround Mode = iota
	// Direct bakes a quantity the host supports natively.
	Direct
)

func (m Mode) String() string {
	if m == Workaround {
		return "workaround"
	}
	return "direct"
}

// Strategy describes how one map type is baked.
type Strategy struct {
	Mode     Mode
	Input    shader.Port // principled input rerouted by the workaround
	Quantity host.Quantity
}

var strategies = map[MapType]Strategy{
	Albedo:    {Mode: Workaround, Input: shader.PortBaseColor, Quantity: host.QuantityEmit},
	Normal:    {Mode: Direct, Quantity: host.QuantityNormal},
	Roughness: {Mode: Workaround, Input: shader.PortRoughness, Quantity: host.QuantityEmit},
	Metallic:  {Mode: Workaround, Input: shader.PortMetallic, Quantity: host.QuantityEmit},
	AO:        {Mode: Direct, Quantity: host.QuantityAO},
	Emission:  {Mode: Direct, Quantity: host.QuantityEmit},
}

// StrategyFor returns the bake strategy of m. The packed map has none.
func StrategyFor(m MapType) (Strategy, bool) {
	s, ok := strategies[m]
	return s, ok
}

// ColorSpace returns the encoding of m's target image: sRGB for albedo and
// emission, Non-Color for data maps.
func (m MapType) ColorSpace() host.ColorSpace {
	if m == Albedo || m == Emission {
		return host.SRGB
	}
	return host.NonColor
}

// Float reports whether m needs a float buffer. Normal maps store signed
// components and do.
func (m MapType) Float() bool { return m == Normal }

// ParseMapType resolves a map name. "ambient_occlusion" is accepted for AO.
func ParseMapType(s string) (MapType, error) {
	switch m := MapType(strings.ToLower(strings.TrimSpace(s))); m {
	case Albedo, Normal, Roughness, Metallic, AO, Emission, MetallicRoughness:
		return m, nil
	case "ambient_occlusion":
		return AO, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown map type %q", s)
}

// ImageName is the deterministic target name: <base>[_<scope>]_<map>.
func ImageName(base, scope string, m MapType) string {
	if scope != "" {
		return fmt.Sprintf("%s_%s_%s", base, scope, m)
	}
	return fmt.Sprintf("%s_%s", base, m)
}

// FileName is the deterministic file name for a persisted target.
func FileName(base, scope string, m MapType) string {
	return ImageName(base, scope, m) + ".png"
}

// MaterialName is the name of the assembled material for a scope.
func MaterialName(base, scope string) string {
	if scope != "" {
		return base + "_" + scope + "_baked"
	}
	return base + "_baked"
}
