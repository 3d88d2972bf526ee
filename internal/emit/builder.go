package emit

import (
	"strings"

	"github.com/roach88/lwir/internal/ir"
)

// BlockBuilder is the placeholder filled by BuilderPlugin.
const BlockBuilder = "builder"

// BuilderPlugin emits one build_<snake_case> factory per instruction. The
// generated functions are meant to live inside a builder class providing
// insert(Inst*).
type BuilderPlugin struct {
	// Allocator, when set, is a C++ callable taking (size, alignment) and
	// returning raw storage; instances are then placement-constructed in it
	// so the caller controls where nodes live (e.g. an arena).
	Allocator string
}

// Name implements Plugin.
func (p *BuilderPlugin) Name() string { return "builder" }

// Run implements Plugin.
func (p *BuilderPlugin) Run(r *ir.IR) (Blocks, error) {
	if err := checkIR(p.Name(), r); err != nil {
		return nil, err
	}

	w := &codeWriter{}
	for i := range r.Insts {
		inst := &r.Insts[i]
		class := inst.ClassName(r)
		ctorArgs := strings.Join(inst.ArgNames(), ", ")

		w.line("%s* %s(%s) {", class, inst.BuilderName(), strings.Join(inst.FormalArgs(r), ", "))
		w.push()
		if p.Allocator == "" {
			w.line("%s* inst = new %s(%s);", class, class, ctorArgs)
		} else {
			w.line("void* memory = %s(sizeof(%s), alignof(%s));", p.Allocator, class, class)
			w.line("%s* inst = new (memory) %s(%s);", class, class, ctorArgs)
		}
		w.line("insert(inst);")
		w.line("return inst;")
		w.pop()
		w.line("}")
	}
	return Blocks{BlockBuilder: w.String()}, nil
}
