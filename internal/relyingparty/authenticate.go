package relyingparty

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"math/big"
)

type ecdsaSig struct {
	R, S *big.Int
}

// Assertion is a parsed U2F_AUTHENTICATE response (spec.md §4.5 step 6):
// the user-presence byte, the big-endian counter, and the raw signature.
type Assertion struct {
	UserPresenceVerified bool
	Counter              uint32

	sig ecdsaSig
	raw []byte // user-presence byte || counter, as signed
}

// ParseAssertion parses the data portion of a U2F_AUTHENTICATE response.
func ParseAssertion(buf []byte) (*Assertion, error) {
	if len(buf) < 5 {
		return nil, errors.New("relyingparty: assertion data is too short")
	}

	var a Assertion

	up := buf[0]
	if up|1 != 1 {
		return nil, errors.New("relyingparty: invalid user presence byte")
	}
	a.UserPresenceVerified = up == 1
	a.Counter = uint32(buf[1])<<24 | uint32(buf[2])<<16 | uint32(buf[3])<<8 | uint32(buf[4])
	a.raw = buf[:5]

	rest, err := asn1.Unmarshal(buf[5:], &a.sig)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.New("relyingparty: trailing data after signature")
	}

	return &a, nil
}

// VerifySignature recomputes the assertion hash from spec.md §4.5 step 4
// and checks it against the device's public key. appID and challenge are
// the raw 32-byte values the core signed.
func (a *Assertion) VerifySignature(pub *ecdsa.PublicKey, appID, challenge [32]byte) error {
	buf := make([]byte, 0, 32+len(a.raw)+32)
	buf = append(buf, appID[:]...)
	buf = append(buf, a.raw...)
	buf = append(buf, challenge[:]...)
	hash := sha256.Sum256(buf)

	if !ecdsa.Verify(pub, hash[:], a.sig.R, a.sig.S) {
		return errors.New("relyingparty: invalid signature")
	}
	return nil
}
