// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the load, build and run lifecycle of a
// network, decoupled from any specific entrypoint like a CLI.
package app
