package ir

import (
	"fmt"
	"strings"
)

// Descriptor validation error codes (E200-E299)
const (
	ErrEmptyName         = "E201" // instruction or argument name is empty
	ErrDuplicateInst     = "E202" // two instructions share a name
	ErrDuplicateArg      = "E203" // two arguments of one instruction share a name
	ErrUnknownKind       = "E204" // argument type kind outside the closed set
	ErrScalarUnnamed     = "E205" // scalar argument without a payload type name
	ErrVariadicMixed     = "E206" // variadic argument combined with other value arguments
	ErrSettableValue     = "E207" // settable flag on a value argument
	ErrInvalidGetter     = "E208" // getter policy outside the closed set
	ErrEmptyResultType   = "E209" // instruction without a result type expression
	ErrEmptyNamingConfig = "E210" // IR value type or base class is empty
)

// ValidationError is one descriptor problem, located by a field path such
// as "insts[2].args[0].type".
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a descriptor against the model's invariants.
// Returns all errors found (does not fail-fast).
func Validate(r *IR) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(r.ValueType) == "" {
		errs = append(errs, ValidationError{
			Field:   "value_type",
			Message: "value type name is required",
			Code:    ErrEmptyNamingConfig,
		})
	}
	if strings.TrimSpace(r.InstBase) == "" {
		errs = append(errs, ValidationError{
			Field:   "inst_base",
			Message: "instruction base class is required",
			Code:    ErrEmptyNamingConfig,
		})
	}

	seen := make(map[string]bool)
	for i := range r.Insts {
		inst := &r.Insts[i]
		path := fmt.Sprintf("insts[%d]", i)

		if strings.TrimSpace(inst.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: "instruction name is required",
				Code:    ErrEmptyName,
			})
		} else if seen[inst.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate instruction name: %q", inst.Name),
				Code:    ErrDuplicateInst,
			})
		}
		seen[inst.Name] = true

		if strings.TrimSpace(inst.ResultType) == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".type",
				Message: fmt.Sprintf("instruction %q has no result type expression", inst.Name),
				Code:    ErrEmptyResultType,
			})
		}

		errs = append(errs, validateArgs(inst, path)...)
	}

	return errs
}

// validateArgs checks the per-argument invariants of one instruction.
func validateArgs(inst *Inst, path string) []ValidationError {
	var errs []ValidationError

	argNames := make(map[string]bool)
	values, variadics := 0, 0
	for j, arg := range inst.Args {
		argPath := fmt.Sprintf("%s.args[%d]", path, j)

		if strings.TrimSpace(arg.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   argPath + ".name",
				Message: fmt.Sprintf("argument name is required in instruction %q", inst.Name),
				Code:    ErrEmptyName,
			})
		} else if argNames[arg.Name] {
			errs = append(errs, ValidationError{
				Field:   argPath + ".name",
				Message: fmt.Sprintf("duplicate argument name %q in instruction %q", arg.Name, inst.Name),
				Code:    ErrDuplicateArg,
			})
		}
		argNames[arg.Name] = true

		switch arg.Type.Kind {
		case KindScalar:
			if strings.TrimSpace(arg.Type.Name) == "" {
				errs = append(errs, ValidationError{
					Field:   argPath + ".type",
					Message: fmt.Sprintf("scalar argument %q needs a type name", arg.Name),
					Code:    ErrScalarUnnamed,
				})
			}
		case KindValue:
			values++
		case KindVariadic:
			variadics++
		default:
			errs = append(errs, ValidationError{
				Field:   argPath + ".type",
				Message: fmt.Sprintf("unknown type kind %s for argument %q", arg.Type.Kind, arg.Name),
				Code:    ErrUnknownKind,
			})
		}

		if arg.Settable && arg.Type.IsValue() {
			errs = append(errs, ValidationError{
				Field:   argPath + ".settable",
				Message: fmt.Sprintf("value argument %q cannot be settable; replace operands through the base class", arg.Name),
				Code:    ErrSettableValue,
			})
		}

		if arg.Getter > GetterAlways {
			errs = append(errs, ValidationError{
				Field:   argPath + ".getter",
				Message: fmt.Sprintf("invalid getter policy %s for argument %q", arg.Getter, arg.Name),
				Code:    ErrInvalidGetter,
			})
		}
	}

	if variadics > 1 || (variadics == 1 && values > 0) {
		errs = append(errs, ValidationError{
			Field:   path + ".args",
			Message: fmt.Sprintf("instruction %q: a variadic argument must be the only value argument", inst.Name),
			Code:    ErrVariadicMixed,
		})
	}

	return errs
}
