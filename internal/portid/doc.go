/*
Package portid parses and formats references to actor ports.

A reference has the canonical form `actor.port`, e.g. `gain.out`. Both
segments are identifiers: a letter or underscore followed by letters, digits,
underscores or hyphens. A bare `actor` (no port) refers to the actor itself
and is accepted where the caller allows it, for instance when the actor has a
single port in the requested direction.
*/
package portid
