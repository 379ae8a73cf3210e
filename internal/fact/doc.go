// Package fact defines the structured-fact model shared by representation
// handlers and crawler observers.
//
// Every parsed response body becomes a Collection: an ordered list of Node
// values. A Node is one of a closed set of variants:
//
//   - Scalar: a string, integer, float, boolean, or null
//   - Sequence: an ordered list of nodes
//   - Mapping: string-keyed nodes
//   - Struct: a functor with positional arguments, e.g. text("hello")
//
// Design decision: We use a sealed interface rather than an open type
// hierarchy because:
//  1. Every handler can switch over a finite set of kinds
//  2. Consumers never need reflection to inspect a representation
//  3. Adding a kind is a deliberate, compiler-visible change
//
// The functor of the first fact in a collection is its structural tag. The
// representation registry uses the tag to choose a serializer.
package fact
