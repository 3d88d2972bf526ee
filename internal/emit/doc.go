// Package emit synthesizes C++ source fragments from ir descriptors.
//
// Emission is organized as plugins of two shapes:
//
//   - Plugin: the whole IR in, named top-level blocks out. InstPlugin,
//     BuilderPlugin and CAPIPlugin are the block producers.
//   - InstMember: one instruction in, one class-body fragment out.
//     Constructor, Getter, Setter, Hash, Equality and Write are members
//     composed by InstPlugin in caller-supplied order.
//
// Plugins hold only their configuration; they keep no state between runs and
// never mutate the descriptor. Any specification fault is reported as a
// *SpecError before the plugin returns text, so a failed run produces no
// output at all.
//
// Generated classes rely on this base-class contract:
//
//	Base(<result type>, std::vector<Value*> args)
//	Value* arg(size_t index) const
//	size_t arg_count() const
//	const std::vector<Value*>& args() const
//	void write_args(std::ostream& stream, bool& is_first) const
//	virtual size_t hash() const
//	virtual bool equals(const Inst* other) const
//	virtual void write(std::ostream& stream) const
//
// and the builder contract `void insert(Inst*)`.
package emit
