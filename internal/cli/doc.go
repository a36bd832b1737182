// Package cli is the command-line surface of dosgrid. It parses flags into
// an app.Config, runs the requested command and maps failures to process
// exit codes through ExitError.
package cli
