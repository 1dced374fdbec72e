// Package relyingparty verifies the responses produced by the u2f package's
// Register and Authenticate handlers, the way a FIDO relying party would.
//
// u2fdemo uses it as an independent check that the signed byte sequences in
// spec.md §4.4/§4.5 were actually built and signed correctly (spec.md §8
// invariants 1, 2, 6, 7); the u2f package's own tests do not use it. It is
// not part of the authenticator's public surface.
package relyingparty

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/asn1"
	"errors"
)

// Registration is what a relying party would persist after a successful
// Register exchange: the key handle, the device's public key, and the
// attestation certificate that vouched for them.
type Registration struct {
	KeyHandle       []byte
	PubKey          ecdsa.PublicKey
	AttestationCert *x509.Certificate

	signature []byte
}

// ParseRegistrationResponse parses the data portion of a U2F_REGISTER
// response (everything before the two-byte status word): the 0x05 reserved
// byte, the uncompressed EC point, the length-prefixed key handle, the DER
// attestation certificate, and the trailing DER signature (spec.md §4.4
// step 5).
func ParseRegistrationResponse(buf []byte) (*Registration, error) {
	if len(buf) < 1+65+1+1+1 {
		return nil, errors.New("relyingparty: registration data is too short")
	}

	if buf[0] != 0x05 {
		return nil, errors.New("relyingparty: invalid reserved byte")
	}
	buf = buf[1:]

	var r Registration

	x, y := elliptic.Unmarshal(elliptic.P256(), buf[:65])
	if x == nil {
		return nil, errors.New("relyingparty: invalid public key point")
	}
	r.PubKey.Curve = elliptic.P256()
	r.PubKey.X = x
	r.PubKey.Y = y
	buf = buf[65:]

	khLen := int(buf[0])
	buf = buf[1:]
	if len(buf) < khLen {
		return nil, errors.New("relyingparty: invalid key handle length")
	}
	r.KeyHandle = buf[:khLen]
	buf = buf[khLen:]

	// The certificate length isn't carried on the wire; infer it by parsing
	// raw ASN.1 first, since x509.ParseCertificate rejects trailing bytes.
	rest, err := asn1.Unmarshal(buf, &asn1.RawValue{})
	if err != nil {
		return nil, err
	}
	r.signature = rest

	cert, err := x509.ParseCertificate(buf[:len(buf)-len(rest)])
	if err != nil {
		return nil, err
	}
	r.AttestationCert = cert

	return &r, nil
}

// VerifyAttestationChain checks the attestation certificate against a trust
// root pool. Skipped entirely in tests that use a self-signed development
// attestation key, which is the normal case for a from-scratch authenticator.
func (r *Registration) VerifyAttestationChain(roots *x509.CertPool) error {
	_, err := r.AttestationCert.Verify(x509.VerifyOptions{Roots: roots})
	return err
}

// VerifyRegistrationSignature recomputes the attestation hash from spec.md
// §4.4 step 3 and checks it against the attestation certificate's signature.
// appID and challenge are the raw 32-byte values the core signed — there is
// no browser clientData JSON to hash first, unlike the U2F JS API.
func (r *Registration) VerifyRegistrationSignature(appID, challenge [32]byte) error {
	buf := make([]byte, 0, 1+32+32+len(r.KeyHandle)+65)
	buf = append(buf, 0x00)
	buf = append(buf, appID[:]...)
	buf = append(buf, challenge[:]...)
	buf = append(buf, r.KeyHandle...)
	buf = append(buf, elliptic.Marshal(r.PubKey.Curve, r.PubKey.X, r.PubKey.Y)...)

	return r.AttestationCert.CheckSignature(x509.ECDSAWithSHA256, buf, r.signature)
}
