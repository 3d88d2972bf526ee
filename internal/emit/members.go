package emit

import (
	"fmt"
	"strings"

	"github.com/roach88/lwir/internal/ir"
)

// Constructor emits the class constructor. The base class receives the
// result type expression and the operand list, scalar fields are
// initialized in declaration order, and every type check becomes an
// assert in the body.
type Constructor struct{}

func (Constructor) Name() string { return "constructor" }

func (Constructor) Run(inst *ir.Inst, r *ir.IR) (string, error) {
	init := []string{fmt.Sprintf("%s(%s, %s)", inst.BaseName(r), inst.ResultType, operandList(inst))}
	for _, arg := range inst.ScalarArgs() {
		init = append(init, fmt.Sprintf("%s(%s)", arg.FieldName(), arg.Name))
	}
	head := fmt.Sprintf("%s(%s): %s",
		inst.ClassName(r), strings.Join(inst.FormalArgs(r), ", "), strings.Join(init, ", "))

	w := &codeWriter{indent: 1}
	if len(inst.TypeChecks) == 0 {
		w.line("%s {}", head)
		return w.String(), nil
	}
	w.line("%s {", head)
	w.push()
	for _, check := range inst.TypeChecks {
		w.line("assert(%s);", check)
	}
	w.pop()
	w.line("}")
	return w.String(), nil
}

// Getter emits named accessors. Value arguments only get one under
// GetterAlways, since the base class already exposes arg(i); scalars get
// one unless GetterNever.
type Getter struct{}

func (Getter) Name() string { return "getter" }

func (Getter) Run(inst *ir.Inst, r *ir.IR) (string, error) {
	w := &codeWriter{indent: 1}
	valueIndex := 0
	for _, arg := range inst.Args {
		switch arg.Type.Kind {
		case ir.KindValue:
			if arg.Getter == ir.GetterAlways {
				w.line("%s %s() const { return arg(%d); }", arg.Type.Format(r), arg.Name, valueIndex)
			}
			valueIndex++
		case ir.KindVariadic:
			if arg.Getter == ir.GetterAlways {
				w.line("%s %s() const { return args(); }", arg.Type.Format(r), arg.Name)
			}
		case ir.KindScalar:
			if arg.Getter != ir.GetterNever {
				w.line("%s %s() const { return %s; }", arg.Type.Format(r), arg.Name, arg.FieldName())
			}
		default:
			return "", &SpecError{Plugin: "getter", Inst: inst.Name, Arg: arg.Name,
				Message: fmt.Sprintf("unknown type kind %s", arg.Type.Kind)}
		}
	}
	return w.String(), nil
}

// Setter emits set_<name> for settable scalar arguments. Operands are
// replaced through the base class, so a settable value argument is a
// specification error.
type Setter struct{}

func (Setter) Name() string { return "setter" }

func (Setter) Run(inst *ir.Inst, r *ir.IR) (string, error) {
	w := &codeWriter{indent: 1}
	for _, arg := range inst.Args {
		if !arg.Settable {
			continue
		}
		if arg.Type.IsValue() {
			return "", &SpecError{Plugin: "setter", Inst: inst.Name, Arg: arg.Name,
				Message: "setter requested on a value argument; use the base class operand replacement instead"}
		}
		w.line("void set_%s(%s %s) { %s = %s; }",
			arg.Name, arg.Type.Format(r), arg.Name, arg.FieldName(), arg.Name)
	}
	return w.String(), nil
}

// Hash emits hash(). The seed is derived from the instruction name; operand
// identities are folded in order with a rotate-xor step and each scalar
// field is xor-ed in. A zero-argument instruction returns the seed.
type Hash struct{}

func (Hash) Name() string { return "hash" }

func (Hash) Run(inst *ir.Inst, r *ir.IR) (string, error) {
	seed := fmt.Sprintf("(size_t) 0x%016xull", ir.InstSeed(inst.Name))

	w := &codeWriter{indent: 1}
	w.line("size_t hash() const override {")
	w.push()
	if len(inst.Args) == 0 {
		w.line("return %s;", seed)
	} else {
		w.line("size_t hash = %s;", seed)
		if inst.HasValueArgs() {
			w.line("hash ^= std::hash<size_t>()(arg_count());")
			w.line("for (size_t it = 0; it < arg_count(); it++) {")
			w.push()
			w.line("hash = ((hash << 1) | (hash >> (sizeof(size_t) * 8 - 1))) ^ std::hash<%s*>()(arg(it));", r.ValueType)
			w.pop()
			w.line("}")
		}
		for _, arg := range inst.ScalarArgs() {
			w.line("hash ^= std::hash<%s>()(%s);", arg.Type.Format(r), arg.FieldName())
		}
		w.line("return hash;")
	}
	w.pop()
	w.line("}")
	return w.String(), nil
}

// Equality emits equals(). Instances of different generated classes are
// never equal; operands compare by identity, scalars by value.
type Equality struct{}

func (Equality) Name() string { return "equality" }

func (Equality) Run(inst *ir.Inst, r *ir.IR) (string, error) {
	class := inst.ClassName(r)

	w := &codeWriter{indent: 1}
	w.line("bool equals(const %s* other) const override {", r.InstBase)
	w.push()
	w.line("if (this == other) { return true; }")
	w.line("if (!other) { return false; }")
	w.line("const %s* that = dynamic_cast<const %s*>(other);", class, class)
	w.line("if (!that) { return false; }")
	if inst.HasValueArgs() {
		w.line("if (arg_count() != that->arg_count()) { return false; }")
		w.line("for (size_t it = 0; it < arg_count(); it++) {")
		w.push()
		w.line("if (arg(it) != that->arg(it)) { return false; }")
		w.pop()
		w.line("}")
	}
	for _, arg := range inst.ScalarArgs() {
		w.line("if (%s != that->%s) { return false; }", arg.FieldName(), arg.FieldName())
	}
	w.line("return true;")
	w.pop()
	w.line("}")
	return w.String(), nil
}

// Write emits the debug-text writer:
//
//	Name a, b, field=value, other=value
//
// Formatters maps a scalar type to a C++ callable invoked as
// f(stream, field) instead of stream << field. Overrides replaces the whole
// body of the named instructions.
type Write struct {
	Formatters map[ir.Type]string
	Overrides  map[string]string
}

func (*Write) Name() string { return "write" }

func (p *Write) Run(inst *ir.Inst, r *ir.IR) (string, error) {
	w := &codeWriter{indent: 1}
	w.line("void write(std::ostream& stream) const override {")
	w.push()
	if body, ok := p.Overrides[inst.Name]; ok {
		w.lines(body)
		w.pop()
		w.line("}")
		return w.String(), nil
	}

	w.line("stream << %q;", inst.Name)
	if len(inst.Args) > 0 {
		w.line("stream << ' ';")
		w.line("bool is_first = true;")
		w.line("write_args(stream, is_first);")
		for _, arg := range inst.ScalarArgs() {
			w.line(`if (!is_first) { stream << ", "; } else { is_first = false; }`)
			w.line("stream << %q;", arg.Name+"=")
			if formatter, ok := p.Formatters[arg.Type]; ok {
				w.line("%s(stream, %s);", formatter, arg.FieldName())
			} else {
				w.line("stream << %s;", arg.FieldName())
			}
		}
	}
	w.pop()
	w.line("}")
	return w.String(), nil
}
