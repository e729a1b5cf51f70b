// Package request describes outbound network calls and derives the cache keys
// they are stored under. A Descriptor is never written to disk: only the
// sha256 of its canonical form, suffixed with the expected result shape,
// reaches the byte stores, so requests stay anonymised at rest.
package request
