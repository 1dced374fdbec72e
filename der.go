package u2f

import (
	"encoding/asn1"
	"fmt"
	"math/big"
)

// ecdsaSignature mirrors the ASN.1 structure the teacher library
// marshals/unmarshals an ECDSA signature as (tstranex-u2f's virtualkey.go
// dsaSignature / auth.go ecdsaSig): SEQUENCE { INTEGER r, INTEGER s }.
// asn1.Marshal already performs the spec.md §4.6 leading-zero stripping
// and sign-padding rules for big.Int, since that is how DER INTEGER
// encoding works in general.
type ecdsaSignature struct {
	R, S *big.Int
}

// encodeDERSignature DER-encodes a raw (r, s) P-256 signature pair
// (spec.md §4.6). The result is at most maxDERSignatureSize bytes.
func encodeDERSignature(r, s *big.Int) ([]byte, error) {
	der, err := asn1.Marshal(ecdsaSignature{R: r, S: s})
	if err != nil {
		return nil, fmt.Errorf("u2f: encode signature: %w", err)
	}
	if len(der) > maxDERSignatureSize {
		return nil, fmt.Errorf("u2f: encoded signature too large: %d bytes", len(der))
	}
	return der, nil
}

// decodeDERSignature is the inverse of encodeDERSignature, used by tests
// to confirm round-tripping (spec.md §8 invariant 7).
func decodeDERSignature(der []byte) (r, s *big.Int, err error) {
	var sig ecdsaSignature
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, fmt.Errorf("u2f: trailing bytes after signature")
	}
	return sig.R, sig.S, nil
}
