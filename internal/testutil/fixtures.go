// Package testutil holds fixtures shared by the lwir package tests.
package testutil

import (
	"path/filepath"
	"runtime"

	"github.com/roach88/lwir/internal/ir"
)

// ArithIR returns the arithmetic instruction set described by
// testdata/arith/specs/arith.cue, built directly in Go.
func ArithIR() *ir.IR {
	binop := func(name string) ir.Inst {
		return ir.Inst{
			Name:       name,
			Args:       []ir.Arg{ir.ValueArg("a"), ir.ValueArg("b")},
			ResultType: "a->type()",
			TypeChecks: []string{"a->type() == b->type()"},
		}
	}

	cond := ir.ValueArg("cond")
	cond.Getter = ir.GetterAlways

	constInt := ir.ScalarArg("value", "int")
	constInt.Settable = true

	return ir.New(
		binop("Add"),
		binop("Sub"),
		binop("Mul"),
		ir.Inst{
			Name:       "Select",
			Args:       []ir.Arg{cond, ir.ValueArg("a"), ir.ValueArg("b")},
			ResultType: "a->type()",
			TypeChecks: []string{"cond->type() == Type::Bool", "a->type() == b->type()"},
		},
		ir.Inst{
			Name:       "ConstInt",
			Args:       []ir.Arg{constInt},
			ResultType: "Type::Int",
		},
		ir.Inst{
			Name:       "ConstBool",
			Args:       []ir.Arg{ir.ScalarArg("value", "bool")},
			ResultType: "Type::Bool",
		},
	)
}

// PhiIR returns a one-instruction set with a variadic operand list.
func PhiIR() *ir.IR {
	return ir.New(ir.Inst{
		Name:       "Phi",
		Args:       []ir.Arg{ir.VarargsArg("incoming")},
		ResultType: "incoming[0]->type()",
	})
}

// RepoRoot returns the repository root directory.
func RepoRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// ArithDir returns testdata/arith: the CUE descriptor, templates and jobs
// for ArithIR.
func ArithDir() string {
	return filepath.Join(RepoRoot(), "testdata", "arith")
}
