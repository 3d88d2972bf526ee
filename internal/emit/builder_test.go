package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lwir/internal/ir"
	"github.com/roach88/lwir/internal/testutil"
)

func TestBuilderPlugin_Heap(t *testing.T) {
	r := ir.New(ir.Inst{Name: "ConstInt", Args: []ir.Arg{ir.ScalarArg("value", "int")}, ResultType: "Type::Int"})

	blocks, err := (&BuilderPlugin{}).Run(r)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"ConstIntInst* build_const_int(int value) {\n"+
		"  ConstIntInst* inst = new ConstIntInst(value);\n"+
		"  insert(inst);\n"+
		"  return inst;\n"+
		"}\n", blocks[BlockBuilder])
}

func TestBuilderPlugin_Allocator(t *testing.T) {
	r := ir.New(ir.Inst{Name: "Add", Args: []ir.Arg{ir.ValueArg("a"), ir.ValueArg("b")}, ResultType: "a->type()"})

	blocks, err := (&BuilderPlugin{Allocator: "arena_alloc"}).Run(r)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"AddInst* build_add(Value* a, Value* b) {\n"+
		"  void* memory = arena_alloc(sizeof(AddInst), alignof(AddInst));\n"+
		"  AddInst* inst = new (memory) AddInst(a, b);\n"+
		"  insert(inst);\n"+
		"  return inst;\n"+
		"}\n", blocks[BlockBuilder])
}

func TestBuilderPlugin_OnePerInstruction(t *testing.T) {
	blocks, err := (&BuilderPlugin{}).Run(testutil.ArithIR())
	require.NoError(t, err)

	code := blocks[BlockBuilder]
	for _, name := range []string{"build_add(", "build_sub(", "build_mul(", "build_select(", "build_const_int(", "build_const_bool("} {
		assert.Equal(t, 1, strings.Count(code, name), name)
	}
}

func TestBuilderPlugin_Variadic(t *testing.T) {
	blocks, err := (&BuilderPlugin{}).Run(testutil.PhiIR())
	require.NoError(t, err)
	assert.Contains(t, blocks[BlockBuilder], "PhiInst* build_phi(const std::vector<Value*>& incoming) {\n")
}
