// Package ir provides the declarative instruction-set descriptors consumed by
// the lwir code generator.
//
// This package contains descriptor types, naming rules, validation and
// content-addressed fingerprints. All other internal packages import ir; ir
// imports nothing internal.
//
// Key design constraints:
//   - Descriptors are immutable values; emitters only read them
//   - The argument type model is a closed set of three kinds (Scalar,
//     SingleValue, VariadicValue) matched exhaustively
//   - Type values are comparable so they can key lookup tables; the two
//     value kinds each form a single equivalence class
package ir
