// Package compiler turns CUE instruction-set descriptors into ir records.
//
// A descriptor is a CUE struct:
//
//	ir: {
//		inst_suffix: "Inst"  // optional
//		inst_base:   "Inst"  // optional
//		value_type:  "Value" // optional
//		insts: [{
//			name: "Add"
//			args: [{name: "a"}, {name: "b"}]
//			type: "a->type()"
//			type_checks: ["a->type() == b->type()"]
//		}, {
//			name: "ConstInt"
//			args: [{name: "value", type: "int"}]
//			type: "Type::Int"
//		}]
//	}
//
// CUE definitions such as #binop can produce instruction entries; the
// compiler only sees the evaluated, concrete value.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/lwir/internal/ir"
)

// CompileIR parses a CUE value into an IR descriptor.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The value should be the descriptor struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`ir: { insts: [...] }`)
//	desc, err := CompileIR(v.LookupPath(cue.ParsePath("ir")))
func CompileIR(v cue.Value) (*ir.IR, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	desc := ir.New()

	naming := []struct {
		field string
		dst   *string
	}{
		{"inst_suffix", &desc.InstSuffix},
		{"inst_base", &desc.InstBase},
		{"value_type", &desc.ValueType},
	}
	for _, n := range naming {
		val := v.LookupPath(cue.ParsePath(n.field))
		if !val.Exists() {
			continue
		}
		s, err := val.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		*n.dst = s
	}

	instsVal := v.LookupPath(cue.ParsePath("insts"))
	if !instsVal.Exists() {
		return nil, &CompileError{
			Field:   "insts",
			Message: "insts is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := instsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		inst, err := parseInst(iter.Value())
		if err != nil {
			return nil, err
		}
		desc.Insts = append(desc.Insts, inst)
	}

	return desc, nil
}

// parseInst extracts one instruction entry.
func parseInst(v cue.Value) (ir.Inst, error) {
	var inst ir.Inst

	name, err := requiredString(v, "name")
	if err != nil {
		return inst, err
	}
	inst.Name = name

	inst.ResultType, err = requiredString(v, "type")
	if err != nil {
		return inst, withContext(err, fmt.Sprintf("insts.%s", name))
	}

	if inst.Base, err = optionalString(v, "base"); err != nil {
		return inst, err
	}
	if inst.TypeChecks, err = optionalStrings(v, "type_checks"); err != nil {
		return inst, err
	}
	if inst.Flags, err = optionalStrings(v, "flags"); err != nil {
		return inst, err
	}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		argsIter, err := argsVal.List()
		if err != nil {
			return inst, formatCUEError(err)
		}
		for argsIter.Next() {
			arg, err := parseArg(argsIter.Value(), name)
			if err != nil {
				return inst, err
			}
			inst.Args = append(inst.Args, arg)
		}
	}

	return inst, nil
}

// parseArg extracts one argument. Without kind, an argument with a type is
// a scalar and one without is a single value.
func parseArg(v cue.Value, instName string) (ir.Arg, error) {
	var arg ir.Arg

	name, err := requiredString(v, "name")
	if err != nil {
		return arg, withContext(err, fmt.Sprintf("insts.%s.args", instName))
	}
	arg.Name = name
	field := fmt.Sprintf("insts.%s.args.%s", instName, name)

	typeName, err := optionalString(v, "type")
	if err != nil {
		return arg, err
	}
	kindName, err := optionalString(v, "kind")
	if err != nil {
		return arg, err
	}

	switch {
	case kindName == "" && typeName != "":
		arg.Type = ir.Scalar(typeName)
	case kindName == "":
		arg.Type = ir.SingleValue()
	default:
		kind, ok := ir.ParseKind(kindName)
		if !ok {
			return arg, &CompileError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("unknown type kind %q: must be \"scalar\", \"value\" or \"varargs\"", kindName),
				Pos:     v.LookupPath(cue.ParsePath("kind")).Pos(),
			}
		}
		arg.Type = ir.Type{Kind: kind}
		if kind == ir.KindScalar {
			arg.Type.Name = typeName
		} else if typeName != "" {
			return arg, &CompileError{
				Field:   field + ".type",
				Message: fmt.Sprintf("%s arguments take no type name", kind),
				Pos:     v.LookupPath(cue.ParsePath("type")).Pos(),
			}
		}
	}

	getterName, err := optionalString(v, "getter")
	if err != nil {
		return arg, err
	}
	getter, ok := ir.ParseGetter(getterName)
	if !ok {
		return arg, &CompileError{
			Field:   field + ".getter",
			Message: fmt.Sprintf("invalid getter %q: must be \"default\", \"never\" or \"always\"", getterName),
			Pos:     v.LookupPath(cue.ParsePath("getter")).Pos(),
		}
	}
	arg.Getter = getter

	settableVal := v.LookupPath(cue.ParsePath("settable"))
	if settableVal.Exists() {
		settable, err := settableVal.Bool()
		if err != nil {
			return arg, formatCUEError(err)
		}
		arg.Settable = settable
	}

	return arg, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// withContext prefixes a CompileError's field with the enclosing path.
func withContext(err error, context string) error {
	if ce, ok := err.(*CompileError); ok {
		return &CompileError{Field: context + "." + ce.Field, Message: ce.Message, Pos: ce.Pos}
	}
	return err
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
