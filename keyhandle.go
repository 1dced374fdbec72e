package u2f

import "crypto/subtle"

// KeyHandle is the fixed-size, stateless credential record of spec.md §3:
// random seed material plus an HMAC tag binding it to an application
// identifier. The device persists no per-credential state; everything
// needed to verify or re-derive a handle's key comes from the master key
// plus the presented handle and app_id (invariant I3).
type KeyHandle struct {
	Key [KHKeySize]byte
	Tag [KHTagSize]byte
}

// Marshal returns the handle's KHSize on-wire bytes (key ‖ tag).
func (h KeyHandle) Marshal() [KHSize]byte {
	var buf [KHSize]byte
	copy(buf[:KHKeySize], h.Key[:])
	copy(buf[KHKeySize:], h.Tag[:])
	return buf
}

// parseKeyHandle reconstructs a KeyHandle from its KHSize on-wire bytes.
// Callers must have already checked len(buf) == KHSize.
func parseKeyHandle(buf []byte) KeyHandle {
	var h KeyHandle
	copy(h.Key[:], buf[:KHKeySize])
	copy(h.Tag[:], buf[KHKeySize:])
	return h
}

// mintKeyHandle implements spec.md §4.3 mint: fresh CSPRNG key material,
// a tag binding it to appID, and the P-256 public key the engine derives
// by treating the full handle as private-key seed material.
func mintKeyHandle(c Crypto, appID [appIDSize]byte) (KeyHandle, [64]byte, error) {
	var h KeyHandle
	if err := c.Random(h.Key[:]); err != nil {
		return KeyHandle{}, [64]byte{}, err
	}
	h.Tag = c.HandleTag(h.Key, appID)

	x, y, err := c.DerivePublicKey(h.Marshal())
	if err != nil {
		return KeyHandle{}, [64]byte{}, err
	}

	var pub [64]byte
	copy(pub[:32], x[:])
	copy(pub[32:], y[:])
	return h, pub, nil
}

// verifyKeyHandle implements spec.md §4.3 verify: a constant-time
// comparison of the handle's tag against one freshly recomputed from
// (master_key, key, appID) (invariant I2).
func verifyKeyHandle(c Crypto, h KeyHandle, appID [appIDSize]byte) bool {
	want := c.HandleTag(h.Key, appID)
	return subtle.ConstantTimeCompare(h.Tag[:], want[:]) == 1
}
