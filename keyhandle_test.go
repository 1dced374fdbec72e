package u2f

import "testing"

func TestKeyHandleMarshalRoundTrip(t *testing.T) {
	var h KeyHandle
	for i := range h.Key {
		h.Key[i] = byte(i)
	}
	for i := range h.Tag {
		h.Tag[i] = byte(255 - i)
	}

	buf := h.Marshal()
	if len(buf) != KHSize {
		t.Fatalf("Marshal length = %d, want %d", len(buf), KHSize)
	}

	got := parseKeyHandle(buf[:])
	if got != h {
		t.Errorf("parseKeyHandle(Marshal(h)) = %+v, want %+v", got, h)
	}
}

func TestMintedHandleVerifiesAgainstItsOwnAppID(t *testing.T) {
	crypto, _ := newTestCrypto(t)
	appID := testAppID("example.com")

	h, pub, err := mintKeyHandle(crypto, appID)
	if err != nil {
		t.Fatalf("mintKeyHandle: %v", err)
	}
	if !verifyKeyHandle(crypto, h, appID) {
		t.Errorf("freshly minted handle did not verify against its own app_id")
	}
	if pub == ([64]byte{}) {
		t.Errorf("mintKeyHandle returned an all-zero public key")
	}
}

func TestMintedHandleRejectsDifferentAppID(t *testing.T) {
	crypto, _ := newTestCrypto(t)
	h, _, err := mintKeyHandle(crypto, testAppID("example.com"))
	if err != nil {
		t.Fatalf("mintKeyHandle: %v", err)
	}

	if verifyKeyHandle(crypto, h, testAppID("not-example.com")) {
		t.Errorf("handle verified against a different app_id")
	}
}

func TestMintedHandleRejectsTamperedKeyOrTag(t *testing.T) {
	crypto, _ := newTestCrypto(t)
	appID := testAppID("example.com")
	h, _, err := mintKeyHandle(crypto, appID)
	if err != nil {
		t.Fatalf("mintKeyHandle: %v", err)
	}

	tamperedKey := h
	tamperedKey.Key[0] ^= 0x01
	if verifyKeyHandle(crypto, tamperedKey, appID) {
		t.Errorf("handle with a tampered key still verified")
	}

	tamperedTag := h
	tamperedTag.Tag[0] ^= 0x01
	if verifyKeyHandle(crypto, tamperedTag, appID) {
		t.Errorf("handle with a tampered tag still verified")
	}
}

// TestDerivePublicKeyIsPureFunctionOfHandle is spec.md §3 invariant I3's
// determinism half: the same handle bytes always rebuild the same public
// key, with no per-credential device state involved.
func TestDerivePublicKeyIsPureFunctionOfHandle(t *testing.T) {
	crypto, _ := newTestCrypto(t)
	h, pub, err := mintKeyHandle(crypto, testAppID("example.com"))
	if err != nil {
		t.Fatalf("mintKeyHandle: %v", err)
	}

	x, y, err := crypto.DerivePublicKey(h.Marshal())
	if err != nil {
		t.Fatalf("DerivePublicKey: %v", err)
	}

	var again [64]byte
	copy(again[:32], x[:])
	copy(again[32:], y[:])
	if again != pub {
		t.Errorf("DerivePublicKey(handle) = %x, want %x", again, pub)
	}
}
