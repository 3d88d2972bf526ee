package ir

import (
	"fmt"
	"strings"
	"unicode"
)

// Defaults applied by New when the descriptor leaves a naming field empty.
const (
	DefaultInstSuffix = "Inst"
	DefaultInstBase   = "Inst"
	DefaultValueType  = "Value"
)

// Kind classifies an argument type. The set is closed: every switch over
// Kind handles exactly these three cases.
type Kind uint8

const (
	// KindScalar is a named payload type stored as a dedicated field.
	KindScalar Kind = iota + 1
	// KindValue is a single reference to another generated value node.
	KindValue
	// KindVariadic is an ordered, read-only sequence of value references.
	KindVariadic
)

// String returns the descriptor spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindValue:
		return "value"
	case KindVariadic:
		return "varargs"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	return k == KindScalar || k == KindValue || k == KindVariadic
}

// ParseKind maps a descriptor spelling back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "scalar":
		return KindScalar, true
	case "value":
		return KindValue, true
	case "varargs", "variadic":
		return KindVariadic, true
	default:
		return 0, false
	}
}

// Type is an argument type. Type is comparable: scalars are equal by name,
// and the value kinds carry no name so all instances of a value kind are
// equal. This makes Type usable directly as a map key.
type Type struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name,omitempty"` // scalar payload type, empty for value kinds
}

// Scalar returns the scalar type with the given literal name.
func Scalar(name string) Type {
	return Type{Kind: KindScalar, Name: name}
}

// SingleValue returns the single value-reference type.
func SingleValue() Type {
	return Type{Kind: KindValue}
}

// VariadicValue returns the variadic value-reference type.
func VariadicValue() Type {
	return Type{Kind: KindVariadic}
}

// IsValue reports whether the type refers to other value nodes.
func (t Type) IsValue() bool {
	switch t.Kind {
	case KindValue, KindVariadic:
		return true
	default:
		return false
	}
}

// Format renders the type as it appears in generated C++.
// The value kinds depend only on r.ValueType.
//
// Panics on an unknown kind; emitters reject those before formatting.
func (t Type) Format(r *IR) string {
	switch t.Kind {
	case KindScalar:
		return t.Name
	case KindValue:
		return r.ValueType + "*"
	case KindVariadic:
		return "const std::vector<" + r.ValueType + "*>&"
	default:
		panic(fmt.Sprintf("ir: unknown type kind %d", uint8(t.Kind)))
	}
}

// String implements fmt.Stringer for diagnostics.
func (t Type) String() string {
	if t.Kind == KindScalar {
		return "Type(" + t.Name + ")"
	}
	return t.Kind.String()
}

// Getter controls accessor emission for an argument.
type Getter uint8

const (
	// GetterDefault emits accessors for scalars and relies on the base
	// class's positional accessor for values.
	GetterDefault Getter = iota
	// GetterNever suppresses the accessor.
	GetterNever
	// GetterAlways emits a named accessor, including for values.
	GetterAlways
)

func (g Getter) String() string {
	switch g {
	case GetterDefault:
		return "default"
	case GetterNever:
		return "never"
	case GetterAlways:
		return "always"
	default:
		return fmt.Sprintf("getter(%d)", uint8(g))
	}
}

// ParseGetter maps a descriptor spelling to a Getter. The empty string is
// GetterDefault.
func ParseGetter(s string) (Getter, bool) {
	switch s {
	case "", "default":
		return GetterDefault, true
	case "never":
		return GetterNever, true
	case "always":
		return GetterAlways, true
	default:
		return 0, false
	}
}

// Arg is one formal argument of an instruction.
type Arg struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Getter   Getter `json:"getter"`
	Settable bool   `json:"settable,omitempty"` // only meaningful for scalars
}

// ValueArg returns a single-value argument.
func ValueArg(name string) Arg {
	return Arg{Name: name, Type: SingleValue()}
}

// VarargsArg returns a variadic value argument.
func VarargsArg(name string) Arg {
	return Arg{Name: name, Type: VariadicValue()}
}

// ScalarArg returns a scalar argument of the given payload type.
func ScalarArg(name, typeName string) Arg {
	return Arg{Name: name, Type: Scalar(typeName)}
}

// FormatFormal renders the argument as a C++ formal parameter.
func (a Arg) FormatFormal(r *IR) string {
	return a.Type.Format(r) + " " + a.Name
}

// FieldName is the mangled private field holding a scalar argument.
func (a Arg) FieldName() string {
	return "_" + a.Name
}

// Inst describes one instruction.
type Inst struct {
	Name       string   `json:"name"`
	Args       []Arg    `json:"args"`
	ResultType string   `json:"type"`                  // C++ expression over argument names
	TypeChecks []string `json:"type_checks,omitempty"` // asserted in the constructor
	Flags      []string `json:"flags,omitempty"`
	Base       string   `json:"base,omitempty"` // overrides IR.InstBase
}

// ClassName is the generated class name.
func (i *Inst) ClassName(r *IR) string {
	return i.Name + r.InstSuffix
}

// BaseName is the generated class's base class.
func (i *Inst) BaseName(r *IR) string {
	if i.Base != "" {
		return i.Base
	}
	return r.InstBase
}

// BuilderName is the factory function name, e.g. "build_const_int".
func (i *Inst) BuilderName() string {
	return "build_" + SnakeCase(i.Name)
}

// FormalArgs renders every argument as a C++ formal parameter.
func (i *Inst) FormalArgs(r *IR) []string {
	formal := make([]string, 0, len(i.Args))
	for _, arg := range i.Args {
		formal = append(formal, arg.FormatFormal(r))
	}
	return formal
}

// ArgNames returns the argument names in declaration order.
func (i *Inst) ArgNames() []string {
	names := make([]string, 0, len(i.Args))
	for _, arg := range i.Args {
		names = append(names, arg.Name)
	}
	return names
}

// HasValueArgs reports whether any argument is a value operand.
func (i *Inst) HasValueArgs() bool {
	for _, arg := range i.Args {
		if arg.Type.IsValue() {
			return true
		}
	}
	return false
}

// ScalarArgs returns the scalar arguments in declaration order.
func (i *Inst) ScalarArgs() []Arg {
	var scalars []Arg
	for _, arg := range i.Args {
		if arg.Type.Kind == KindScalar {
			scalars = append(scalars, arg)
		}
	}
	return scalars
}

// HasFlag reports whether flag is set on the instruction.
func (i *Inst) HasFlag(flag string) bool {
	for _, f := range i.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// IR is a complete instruction-set descriptor.
type IR struct {
	Insts      []Inst `json:"insts"`
	InstSuffix string `json:"inst_suffix"`
	InstBase   string `json:"inst_base"`
	ValueType  string `json:"value_type"`
}

// New returns an IR with the default suffix, base and value type.
func New(insts ...Inst) *IR {
	return &IR{
		Insts:      insts,
		InstSuffix: DefaultInstSuffix,
		InstBase:   DefaultInstBase,
		ValueType:  DefaultValueType,
	}
}

// Lookup finds an instruction by name.
func (r *IR) Lookup(name string) (*Inst, bool) {
	for i := range r.Insts {
		if r.Insts[i].Name == name {
			return &r.Insts[i], true
		}
	}
	return nil, false
}

// SnakeCase inserts an underscore before every upper-case letter that is
// not the first character, then lower-cases everything:
// "ConstInt" -> "const_int", "Add" -> "add".
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i != 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
