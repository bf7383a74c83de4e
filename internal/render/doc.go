// Package render turns intermediate expressions into SQL text.
//
// Rendering is dispatched per node kind: a Composite holds one Translator
// per sqlexpr.Kind, and every translator calls back into the Renderer for
// its children. Dialects register their translators into a Composite; a
// kind without a registration fails with NotSupportedError.
//
// The depth argument threaded through every call is only a pretty-printing
// indentation level (tab count). It grows when entering a nested clause
// such as a subquery or a WHERE predicate.
//
// A Renderer is created per Render call and collects the query
// parameters it emits, in emission order.
package render
