package u2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// Crypto is the narrow facade over the primitive crypto engine spec.md §2.1
// and §6 describe as an external collaborator: HMAC-SHA-256 keyed by a
// named master key, ECDSA-P-256 sign/derive, and a CSPRNG. One-shot SHA-256
// hashing of the signed byte sequences (spec.md §4.4/§4.5) is done directly
// with crypto/sha256 at the handler call sites — there is no secret
// material in those hashes, so there is nothing for this facade to guard,
// and the teacher's own code hashes directly the same way.
type Crypto interface {
	// Random fills p with CSPRNG bytes.
	Random(p []byte) error

	// HandleTag computes HMAC(master_key, key ‖ appID), truncated to
	// KHTagSize bytes (spec.md §4.3 compute_tag).
	HandleTag(key [KHKeySize]byte, appID [appIDSize]byte) [KHTagSize]byte

	// DerivePublicKey derives the P-256 public key for a key handle's full
	// KHSize bytes, treated as private-key seed material (spec.md §4.3
	// mint step 3, §9 "type punning" note: the engine never sees the
	// codec's internal key/tag split, only KHSize opaque bytes).
	DerivePublicKey(handle [KHSize]byte) (x, y [32]byte, err error)

	// SignWithHandle signs hash with the private key derived from a key
	// handle's KHSize bytes (spec.md §4.5 step 5, the "load_private" then
	// sign sequence collapsed into one call since Go has no ambient
	// "currently loaded key" state to thread through).
	SignWithHandle(handle [KHSize]byte, hash [32]byte) (r, s *big.Int, err error)

	// SignAttestation signs hash with the device's fixed attestation
	// private key (spec.md §4.4 step 4).
	SignAttestation(hash [32]byte) (r, s *big.Int, err error)

	// AttestationCertDER returns the opaque attestation certificate bytes
	// (spec.md §3, §6).
	AttestationCertDER() []byte
}

// defaultCrypto is the reference Crypto implementation: stdlib ECDSA/HMAC/
// SHA-256/CSPRNG, plus golang.org/x/crypto/hkdf to expand a key handle's
// seed bytes into a P-256 scalar (spec.md §4.3's "or a seed the ECDSA
// engine deterministically expands" alternative).
type defaultCrypto struct {
	masterKey       []byte
	attestationKey  *ecdsa.PrivateKey
	attestationCert []byte
}

// NewDefaultCrypto builds the reference Crypto facade from device-held
// secrets that are themselves out of this package's scope to generate or
// persist (spec.md §1 "Out of scope", §6).
func NewDefaultCrypto(masterKey []byte, attestationKey *ecdsa.PrivateKey, attestationCertDER []byte) Crypto {
	return &defaultCrypto{
		masterKey:       masterKey,
		attestationKey:  attestationKey,
		attestationCert: attestationCertDER,
	}
}

func (c *defaultCrypto) Random(p []byte) error {
	_, err := io.ReadFull(rand.Reader, p)
	return err
}

func (c *defaultCrypto) HandleTag(key [KHKeySize]byte, appID [appIDSize]byte) [KHTagSize]byte {
	mac := hmac.New(sha256.New, c.masterKey)
	mac.Write(key[:])
	mac.Write(appID[:])
	sum := mac.Sum(nil)

	var tag [KHTagSize]byte
	copy(tag[:], sum[:KHTagSize])
	return tag
}

// scalarFromHandle expands a key handle's KHSize bytes into a P-256
// private scalar via HKDF (extract, then expand), using the handle bytes as HKDF input
// keying material and a fixed info label so the expansion is a pure,
// deterministic function of the handle — any two callers presented with
// the same handle rebuild the same private key, with no per-credential
// state kept on the device (spec.md §3 invariant I3).
func scalarFromHandle(handle [KHSize]byte) (*big.Int, error) {
	curve := elliptic.P256()
	kdf := hkdf.New(sha256.New, handle[:], nil, []byte("u2f-key-handle-scalar"))

	// Rejection sampling keeps the scalar uniform in [1, N-1]; P-256's
	// order is close enough to 2^256 that a second draw is exceedingly
	// rare in practice.
	for {
		buf := make([]byte, 32)
		if _, err := io.ReadFull(kdf, buf); err != nil {
			return nil, err
		}
		d := new(big.Int).SetBytes(buf)
		if d.Sign() != 0 && d.Cmp(curve.Params().N) < 0 {
			return d, nil
		}
	}
}

func (c *defaultCrypto) DerivePublicKey(handle [KHSize]byte) (x, y [32]byte, err error) {
	d, err := scalarFromHandle(handle)
	if err != nil {
		return x, y, err
	}
	curve := elliptic.P256()
	px, py := curve.ScalarBaseMult(d.Bytes())

	px.FillBytes(x[:])
	py.FillBytes(y[:])
	return x, y, nil
}

func (c *defaultCrypto) SignWithHandle(handle [KHSize]byte, hash [32]byte) (r, s *big.Int, err error) {
	d, err := scalarFromHandle(handle)
	if err != nil {
		return nil, nil, err
	}
	curve := elliptic.P256()
	priv := new(ecdsa.PrivateKey)
	priv.Curve = curve
	priv.D = d
	priv.X, priv.Y = curve.ScalarBaseMult(d.Bytes())

	return ecdsa.Sign(rand.Reader, priv, hash[:])
}

func (c *defaultCrypto) SignAttestation(hash [32]byte) (r, s *big.Int, err error) {
	return ecdsa.Sign(rand.Reader, c.attestationKey, hash[:])
}

func (c *defaultCrypto) AttestationCertDER() []byte {
	return c.attestationCert
}
