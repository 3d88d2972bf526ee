package emit

import (
	"errors"
	"fmt"

	"github.com/roach88/lwir/internal/ir"
)

// Blocks maps template placeholder names to generated text.
type Blocks map[string]string

// Plugin produces named blocks for a whole IR.
type Plugin interface {
	// Name identifies the plugin in logs and errors.
	Name() string

	// Run generates every block this plugin owns.
	Run(r *ir.IR) (Blocks, error)
}

// InstMember produces one class-body fragment for one instruction.
type InstMember interface {
	// Name identifies the member in logs and errors.
	Name() string

	// Run generates the member text, or "" when the instruction needs none.
	Run(inst *ir.Inst, r *ir.IR) (string, error)
}

// ErrSpecification is the sentinel matched by every *SpecError.
var ErrSpecification = errors.New("specification error")

// SpecError reports a descriptor/plugin combination that cannot be emitted.
// It identifies the offending instruction and, when relevant, argument.
type SpecError struct {
	Plugin  string
	Inst    string
	Arg     string // empty when the fault is not argument-specific
	Message string
}

func (e *SpecError) Error() string {
	switch {
	case e.Inst != "" && e.Arg != "":
		return fmt.Sprintf("%s: instruction %q, argument %q: %s", e.Plugin, e.Inst, e.Arg, e.Message)
	case e.Inst != "":
		return fmt.Sprintf("%s: instruction %q: %s", e.Plugin, e.Inst, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Plugin, e.Message)
	}
}

// Is makes errors.Is(err, ErrSpecification) match.
func (e *SpecError) Is(target error) bool {
	return target == ErrSpecification
}

// checkInst enforces the type-model invariants every emitter depends on:
// all kinds are known and a variadic argument is the only value argument.
func checkInst(plugin string, inst *ir.Inst) error {
	values, variadic := 0, ""
	for _, arg := range inst.Args {
		switch arg.Type.Kind {
		case ir.KindScalar:
		case ir.KindValue:
			values++
		case ir.KindVariadic:
			if variadic != "" {
				return &SpecError{Plugin: plugin, Inst: inst.Name, Arg: arg.Name,
					Message: fmt.Sprintf("second variadic argument (first is %q)", variadic)}
			}
			variadic = arg.Name
		default:
			return &SpecError{Plugin: plugin, Inst: inst.Name, Arg: arg.Name,
				Message: fmt.Sprintf("unknown type kind %s", arg.Type.Kind)}
		}
	}
	if variadic != "" && values > 0 {
		return &SpecError{Plugin: plugin, Inst: inst.Name, Arg: variadic,
			Message: "variadic argument must be the only value argument"}
	}
	return nil
}

// checkIR runs checkInst over every instruction.
func checkIR(plugin string, r *ir.IR) error {
	for i := range r.Insts {
		if err := checkInst(plugin, &r.Insts[i]); err != nil {
			return err
		}
	}
	return nil
}
