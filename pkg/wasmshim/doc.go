// Package wasmshim documents the WebAssembly-facing entry point this
// repository does not implement. A browser embedding would build with the
// js/wasm target and expose a single function:
//
//	func Lex(source string) string
//
// taking Language source text and returning its token stream serialized as
// a JSON array, mirroring the boundary the original toolchain's WebAssembly
// crate exposes to its host page. No js-tagged Go file ships here; this
// package exists only to name where that boundary would live.
package wasmshim
