// Package fonts locates the embedded script font on disk and turns it into a
// data-URI payload the browser can decode without touching the filesystem.
//
// Candidates are probed in priority order; the first regular file that exists
// wins. The binary format is sniffed from the leading four bytes so the CSS
// format() hint always matches the payload.
package fonts
