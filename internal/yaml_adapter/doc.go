// Package yaml_adapter loads network descriptions written in YAML into the
// format-agnostic config model. The document mirrors the HCL blocks:
//
//	network:
//	  default_capacity: 2
//	actors:
//	  - {type: ramp, name: src, rate: 1, horizon: 4, arguments: {start: 1}}
//	samplers:
//	  - {name: dec, rate: 2, policy: last}
//	links:
//	  - {from: src.out, to: dec.in}
//	  - {from: dec.out, to: sink.in, seed: 0.0}
//
// Unknown keys are rejected. Arguments and seeds are converted to cty values
// so that clients decode them exactly as they would from HCL.
package yaml_adapter
