package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for module content hashes.
// Version suffix enables future algorithm migration.
const DomainModule = "tmlink/module/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModuleHash computes the content-addressed identity of m.
// Two modules hash equal iff their canonical payloads are identical.
func ModuleHash(m *Module) (string, error) {
	payload, err := CanonicalPayload(m)
	if err != nil {
		return "", fmt.Errorf("ModuleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModule, payload), nil
}
