package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future change of encoding.
const (
	DomainTrace = "unx2/trace/v1"
	DomainTable = "unx2/table/v1"
)

func newDomainHash(domain string) hash.Hash {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	return h
}

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := newDomainHash(domain)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the trace digest of a configuration sequence.
// Equal to the digest a Recorder reports after adding the same events.
func Digest(events []Event) (string, error) {
	list := make([]any, len(events))
	for i, ev := range events {
		list[i] = ev.canonicalMap()
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("trace digest: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}
