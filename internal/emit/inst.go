package emit

import (
	"strings"

	"github.com/roach88/lwir/internal/ir"
)

// BlockInsts is the placeholder filled by InstPlugin.
const BlockInsts = "insts"

// InstPlugin emits one class per instruction, in IR order. The class body
// holds the scalar fields followed by the output of every member, in the
// order the members were supplied.
type InstPlugin struct {
	Members []InstMember
}

// NewInstPlugin returns an InstPlugin composing members in order.
func NewInstPlugin(members ...InstMember) *InstPlugin {
	return &InstPlugin{Members: members}
}

// DefaultMembers is the most complete member composition.
func DefaultMembers() []InstMember {
	return []InstMember{
		Constructor{},
		Getter{},
		Setter{},
		Hash{},
		Equality{},
		&Write{},
	}
}

// Name implements Plugin.
func (p *InstPlugin) Name() string { return "inst" }

// Run implements Plugin. Every instruction is checked before any text is
// produced.
func (p *InstPlugin) Run(r *ir.IR) (Blocks, error) {
	if err := checkIR(p.Name(), r); err != nil {
		return nil, err
	}

	w := &codeWriter{}
	for i := range r.Insts {
		if i > 0 {
			w.blank()
		}
		if err := p.writeClass(w, &r.Insts[i], r); err != nil {
			return nil, err
		}
	}
	return Blocks{BlockInsts: w.String()}, nil
}

func (p *InstPlugin) writeClass(w *codeWriter, inst *ir.Inst, r *ir.IR) error {
	w.line("class %s final: public %s {", inst.ClassName(r), inst.BaseName(r))

	if scalars := inst.ScalarArgs(); len(scalars) > 0 {
		w.line("private:")
		w.push()
		for _, arg := range scalars {
			w.line("%s %s;", arg.Type.Format(r), arg.FieldName())
		}
		w.pop()
	}

	w.line("public:")
	var fragments []string
	for _, member := range p.Members {
		code, err := member.Run(inst, r)
		if err != nil {
			return err
		}
		if code != "" {
			fragments = append(fragments, code)
		}
	}
	w.out.WriteString(strings.Join(fragments, "\n"))
	w.line("};")
	return nil
}

// operandList renders the operand list handed to the base constructor:
// the variadic argument itself, or a brace list of the value arguments.
func operandList(inst *ir.Inst) string {
	var values []string
	for _, arg := range inst.Args {
		switch arg.Type.Kind {
		case ir.KindVariadic:
			return arg.Name
		case ir.KindValue:
			values = append(values, arg.Name)
		}
	}
	return "{" + strings.Join(values, ", ") + "}"
}
