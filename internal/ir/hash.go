package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainIR       = "lwir/ir/v1"
	DomainTemplate = "lwir/template/v1"
	DomainOutput   = "lwir/output/v1"
	DomainInputs   = "lwir/inputs/v1"
	DomainInstSeed = "lwir/inst-seed/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func hexWithDomain(domain string, data []byte) string {
	sum := hashWithDomain(domain, data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint computes the content-addressed identity of a descriptor.
// Two descriptors have the same fingerprint iff every field, including
// instruction and argument order, is equal.
func Fingerprint(r *IR) (string, error) {
	canonical, err := MarshalCanonical(r.CanonicalValue())
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hexWithDomain(DomainIR, canonical), nil
}

// TemplateHash identifies a template document.
func TemplateHash(template string) string {
	return hexWithDomain(DomainTemplate, []byte(template))
}

// OutputHash identifies a generated document.
func OutputHash(output string) string {
	return hexWithDomain(DomainOutput, []byte(output))
}

// InputsHash identifies one generation run's inputs: the descriptor, the
// template and the plugin chain configuration. Identical inputs always
// produce identical output, so runs with equal InputsHash are redundant.
func InputsHash(irHash, templateHash string, plugins any) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"ir":       irHash,
		"template": templateHash,
		"plugins":  plugins,
	})
	if err != nil {
		return "", fmt.Errorf("InputsHash: failed to marshal: %w", err)
	}
	return hexWithDomain(DomainInputs, canonical), nil
}

// InstSeed derives the hash seed emitted into an instruction's generated
// hash function. It depends only on the instruction name.
func InstSeed(name string) uint64 {
	sum := hashWithDomain(DomainInstSeed, []byte(name))
	return binary.BigEndian.Uint64(sum[:8])
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(r *IR) string {
	fp, err := Fingerprint(r)
	if err != nil {
		panic(err)
	}
	return fp
}
