// Package topology holds the actor graph used to validate a network before it
// runs. Nodes are actor names and edges point from producer to consumer.
// Edges marked as feedback close loops on purpose; they are ignored by cycle
// detection and ordering, since their seed values break the dependency.
package topology
