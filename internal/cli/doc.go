// Package cli implements the viewcycle command line: running scenario files
// and the built-in demos, watching a scenario for changes, and printing
// version information.
package cli
