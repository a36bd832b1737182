// Package config defines the format-agnostic description of a network and
// the Loader interface implemented by each description format.
//
// A config.Model is the single input of the assembly package, which turns it
// into a network.Builder. Concrete loaders for HCL and YAML live in their own
// packages; values that clients interpret (arguments, seeds) stay as
// cty.Value so that every format hands over the same typed data.
package config
