package u2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"testing"
)

func TestDERSignatureRoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	hash := sha256.Sum256([]byte("round trip me"))
	r, s, err := ecdsa.Sign(rand.Reader, priv, hash[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	der, err := encodeDERSignature(r, s)
	if err != nil {
		t.Fatalf("encodeDERSignature: %v", err)
	}
	if len(der) > maxDERSignatureSize {
		t.Errorf("encoded signature too large: %d > %d", len(der), maxDERSignatureSize)
	}

	gotR, gotS, err := decodeDERSignature(der)
	if err != nil {
		t.Fatalf("decodeDERSignature: %v", err)
	}
	if gotR.Cmp(r) != 0 || gotS.Cmp(s) != 0 {
		t.Errorf("round trip mismatch: got (%v, %v), want (%v, %v)", gotR, gotS, r, s)
	}

	if !ecdsa.Verify(&priv.PublicKey, hash[:], gotR, gotS) {
		t.Errorf("round-tripped signature does not verify")
	}
}

func TestDecodeDERSignatureRejectsTrailingBytes(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	hash := sha256.Sum256([]byte("trailing bytes"))
	r, s, err := ecdsa.Sign(rand.Reader, priv, hash[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	der, err := encodeDERSignature(r, s)
	if err != nil {
		t.Fatalf("encodeDERSignature: %v", err)
	}

	if _, _, err := decodeDERSignature(append(der, 0xFF)); err == nil {
		t.Errorf("expected an error for trailing bytes after the signature")
	}
}
