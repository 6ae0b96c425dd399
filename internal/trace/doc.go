// Package trace provides the serializable form of machine executions.
//
// A run is recorded as a sequence of Events, one per configuration. The
// sequence and the table that produced it have content-addressed digests:
//
//	digest = hex(SHA-256(domain + 0x00 + canonical JSON))
//
// Canonical JSON follows RFC 8785 for the value shapes used here: object
// keys sorted by UTF-16 code units, no insignificant whitespace, no HTML
// escaping, NFC-normalized strings, and no floats or nulls. Two runs with
// byte-identical configuration sequences have equal digests, which is what
// replay verification compares.
package trace
