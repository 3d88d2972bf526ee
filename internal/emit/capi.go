package emit

import (
	"fmt"
	"strings"

	"github.com/roach88/lwir/internal/ir"
)

// BlockCAPI is the placeholder filled by CAPIPlugin.
const BlockCAPI = "capi"

// CAPIPlugin emits an extern "C" function per instruction that forwards to
// the builder's factory method, so foreign code can build instructions
// through an opaque builder handle.
type CAPIPlugin struct {
	// Prefix is prepended to every exported symbol: <Prefix>_build_<name>.
	Prefix string
	// Builder is the concrete C++ builder type the handle is cast to.
	Builder string
	// Types maps each argument type, and ir.SingleValue() for results, to
	// its representation at the C boundary. Variadic values have no stable
	// representation and are rejected.
	Types map[ir.Type]string
}

// Name implements Plugin.
func (p *CAPIPlugin) Name() string { return "capi" }

// Run implements Plugin. All preconditions are checked for the whole IR
// before any text is produced.
func (p *CAPIPlugin) Run(r *ir.IR) (Blocks, error) {
	if err := p.check(r); err != nil {
		return nil, err
	}
	valueRepr := p.Types[ir.SingleValue()]

	w := &codeWriter{}
	w.line(`extern "C" {`)
	for i := range r.Insts {
		inst := &r.Insts[i]
		formal := []string{"void* builder"}
		var callArgs []string
		for _, arg := range inst.Args {
			formal = append(formal, p.Types[arg.Type]+" "+arg.Name)
			callArgs = append(callArgs, fmt.Sprintf("(%s) %s", arg.Type.Format(r), arg.Name))
		}
		w.line("%s %s_%s(%s) {", valueRepr, p.Prefix, inst.BuilderName(), strings.Join(formal, ", "))
		w.push()
		w.line("return (%s) ((%s*) builder)->%s(%s);",
			valueRepr, p.Builder, inst.BuilderName(), strings.Join(callArgs, ", "))
		w.pop()
		w.line("}")
	}
	w.line("}")
	return Blocks{BlockCAPI: w.String()}, nil
}

func (p *CAPIPlugin) check(r *ir.IR) error {
	if err := checkIR(p.Name(), r); err != nil {
		return err
	}
	if _, ok := p.Types[ir.SingleValue()]; !ok {
		return &SpecError{Plugin: p.Name(), Message: "no C representation registered for the value type"}
	}
	for i := range r.Insts {
		inst := &r.Insts[i]
		for _, arg := range inst.Args {
			if arg.Type.Kind == ir.KindVariadic {
				return &SpecError{Plugin: p.Name(), Inst: inst.Name, Arg: arg.Name,
					Message: "variadic value arguments are not supported by the C API"}
			}
			if _, ok := p.Types[arg.Type]; !ok {
				return &SpecError{Plugin: p.Name(), Inst: inst.Name, Arg: arg.Name,
					Message: fmt.Sprintf("no C representation registered for %s", arg.Type)}
			}
		}
	}
	return nil
}
