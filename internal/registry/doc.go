// Package registry maps the client type names used in network descriptions
// to the Go constructors that build them.
//
// Modules register their clients at startup. Each registration carries a
// typed argument struct with `cty` tags and its default values; arguments
// coming from a description are merged over the defaults and converted to
// the struct before the constructor runs, so constructors only ever see
// well-typed input.
package registry
