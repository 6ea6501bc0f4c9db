package shader

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a shading node.
type Kind int

const (
	// KindOutput is the material output; its Surface input is what renders.
	KindOutput Kind = iota
	// KindPrincipled is the standard PBR shading node.
	KindPrincipled
	// KindEmission is a self-illuminating shader.
	KindEmission
	// KindImageTexture samples an image, or acts as a bake destination.
	KindImageTexture
	// KindTexCoord provides texture coordinates.
	KindTexCoord
	// KindNormalMap decodes a tangent-space normal map color into a normal.
	KindNormalMap
	// KindSeparateColor splits a color into its channels.
	KindSeparateColor
	// KindRGB is a constant color.
	KindRGB
	// KindValue is a constant scalar.
	KindValue
)

// PortType is the data type carried by a port.
type PortType int

const (
	TypeFloat PortType = iota
	TypeColor
	TypeVector
	TypeShader
)

func (t PortType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeColor:
		return "color"
	case TypeVector:
		return "vector"
	case TypeShader:
		return "shader"
	}
	return fmt.Sprintf("PortType(%d)", int(t))
}

// compatible reports whether an output of type from may feed an input of type to.
// Data types convert implicitly; shader closures only connect to shader inputs.
func compatible(from, to PortType) bool {
	if from == TypeShader || to == TypeShader {
		return from == to
	}
	return true
}

// Port names an input or output on a node.
type Port string

const (
	PortSurface          Port = "Surface"
	PortBSDF             Port = "BSDF"
	PortBaseColor        Port = "Base Color"
	PortMetallic         Port = "Metallic"
	PortRoughness        Port = "Roughness"
	PortNormal           Port = "Normal"
	PortAlpha            Port = "Alpha"
	PortEmissionColor    Port = "Emission Color"
	PortEmissionStrength Port = "Emission Strength"
	PortColor            Port = "Color"
	PortStrength         Port = "Strength"
	PortEmission         Port = "Emission"
	PortVector           Port = "Vector"
	PortUV               Port = "UV"
	PortRed              Port = "Red"
	PortGreen            Port = "Green"
	PortBlue             Port = "Blue"
	PortValue            Port = "Value"
)

// PortSpec describes one port in a kind's port table.
type PortSpec struct {
	Name    Port
	Type    PortType
	Default Value
}

// KindSpec is the fixed port table of a node kind.
type KindSpec struct {
	Name    string
	Inputs  []PortSpec
	Outputs []PortSpec
}

// Input returns the definition of the named input port.
func (s KindSpec) Input(p Port) (PortSpec, bool) {
	for _, ps := range s.Inputs {
		if ps.Name == p {
			return ps, true
		}
	}
	return PortSpec{}, false
}

// Output returns the definition of the named output port.
func (s KindSpec) Output(p Port) (PortSpec, bool) {
	for _, ps := range s.Outputs {
		if ps.Name == p {
			return ps, true
		}
	}
	return PortSpec{}, false
}

var kindSpecs = map[Kind]KindSpec{
	KindOutput: {
		Name:   "output",
		Inputs: []PortSpec{{Name: PortSurface, Type: TypeShader}},
	},
	KindPrincipled: {
		Name: "principled",
		Inputs: []PortSpec{
			{Name: PortBaseColor, Type: TypeColor, Default: RGBA(0.8, 0.8, 0.8, 1)},
			{Name: PortMetallic, Type: TypeFloat, Default: Scalar(0)},
			{Name: PortRoughness, Type: TypeFloat, Default: Scalar(0.5)},
			{Name: PortNormal, Type: TypeVector},
			{Name: PortAlpha, Type: TypeFloat, Default: Scalar(1)},
			{Name: PortEmissionColor, Type: TypeColor, Default: RGBA(1, 1, 1, 1)},
			{Name: PortEmissionStrength, Type: TypeFloat, Default: Scalar(0)},
		},
		Outputs: []PortSpec{{Name: PortBSDF, Type: TypeShader}},
	},
	KindEmission: {
		Name: "emission",
		Inputs: []PortSpec{
			{Name: PortColor, Type: TypeColor, Default: RGBA(1, 1, 1, 1)},
			{Name: PortStrength, Type: TypeFloat, Default: Scalar(1)},
		},
		Outputs: []PortSpec{{Name: PortEmission, Type: TypeShader}},
	},
	KindImageTexture: {
		Name:   "image_texture",
		Inputs: []PortSpec{{Name: PortVector, Type: TypeVector}},
		Outputs: []PortSpec{
			{Name: PortColor, Type: TypeColor},
			{Name: PortAlpha, Type: TypeFloat},
		},
	},
	KindTexCoord: {
		Name:    "tex_coord",
		Outputs: []PortSpec{{Name: PortUV, Type: TypeVector}},
	},
	KindNormalMap: {
		Name: "normal_map",
		Inputs: []PortSpec{
			{Name: PortStrength, Type: TypeFloat, Default: Scalar(1)},
			{Name: PortColor, Type: TypeColor, Default: RGBA(0.5, 0.5, 1, 1)},
		},
		Outputs: []PortSpec{{Name: PortNormal, Type: TypeVector}},
	},
	KindSeparateColor: {
		Name:   "separate_color",
		Inputs: []PortSpec{{Name: PortColor, Type: TypeColor, Default: RGBA(0.8, 0.8, 0.8, 1)}},
		Outputs: []PortSpec{
			{Name: PortRed, Type: TypeFloat},
			{Name: PortGreen, Type: TypeFloat},
			{Name: PortBlue, Type: TypeFloat},
		},
	},
	KindRGB: {
		Name:    "rgb",
		Outputs: []PortSpec{{Name: PortColor, Type: TypeColor}},
	},
	KindValue: {
		Name:    "value",
		Outputs: []PortSpec{{Name: PortValue, Type: TypeFloat}},
	},
}

// Spec returns the port table for k.
func Spec(k Kind) (KindSpec, bool) {
	s, ok := kindSpecs[k]
	return s, ok
}

// String returns the kind's stable name, as used in scene files.
func (k Kind) String() string {
	if s, ok := kindSpecs[k]; ok {
		return s.Name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a kind from its name. Matching is case-insensitive.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, s := range kindSpecs {
		if s.Name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
