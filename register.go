package u2f

import "crypto/sha256"

// registerResponse is the semantic result of a successful Register
// (spec.md §4.4 step 5), before the dispatcher appends the status word.
type registerResponse struct {
	publicKey [64]byte
	handle    KeyHandle
	sig       []byte // DER-encoded
}

// handleRegister implements spec.md §4.4. presence gates the whole
// operation; everything else is pure given the Crypto facade.
func handleRegister(c Crypto, presence PresenceTester, req registerRequest) (*registerResponse, uint16) {
	if !presence.Test() {
		return nil, StatusConditionsNotSatisfied
	}

	handle, pub, err := mintKeyHandle(c, req.AppID)
	if err != nil {
		return nil, StatusInsufficientMemory
	}

	// Attestation hash, spec.md §4.4 step 3, in exact field order:
	// 0x00 ‖ app_id ‖ challenge ‖ handle ‖ 0x04 ‖ pubkey(X ‖ Y).
	h := sha256.New()
	h.Write([]byte{0x00})
	h.Write(req.AppID[:])
	h.Write(req.Challenge[:])
	hb := handle.Marshal()
	h.Write(hb[:])
	h.Write([]byte{0x04})
	h.Write(pub[:])
	hash := h.Sum(nil)

	r, s, err := c.SignAttestation([32]byte(hash))
	if err != nil {
		return nil, StatusInsufficientMemory
	}
	der, err := encodeDERSignature(r, s)
	if err != nil {
		return nil, StatusInsufficientMemory
	}

	return &registerResponse{publicKey: pub, handle: handle, sig: der}, StatusNoError
}

// writeRegisterResponse appends the Register response body (spec.md §4.4
// step 5) in order: 0x05, 0x04 ‖ X ‖ Y, KHSize-prefixed handle, attestation
// certificate, DER signature.
func writeRegisterResponse(w *responseWriter, c Crypto, resp *registerResponse) {
	w.append([]byte{0x05, 0x04})
	w.append(resp.publicKey[:])

	w.append([]byte{byte(KHSize)})
	hb := resp.handle.Marshal()
	w.append(hb[:])

	w.append(c.AttestationCertDER())
	w.append(resp.sig)
}
