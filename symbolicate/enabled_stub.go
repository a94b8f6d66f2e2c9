//go:build nosymbolicate

package symbolicate

// Enabled reports whether symbolication is compiled in
const Enabled = false
