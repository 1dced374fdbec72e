package u2f

import "crypto/sha256"

// authenticateResponse is the semantic result of a successful
// Authenticate-Sign (spec.md §4.5 step 6).
type authenticateResponse struct {
	userPresence byte
	counter      [4]byte
	sig          []byte // DER-encoded
}

// handleAuthenticateCheck implements spec.md §4.5 check-only mode: a pure
// tag check, never touching presence, the counter, or emitting data.
func handleAuthenticateCheck(c Crypto, req authenticateRequest) uint16 {
	if len(req.KeyHandle) != KHSize {
		return StatusWrongData
	}
	h := parseKeyHandle(req.KeyHandle)
	if verifyKeyHandle(c, h, req.AppID) {
		return StatusConditionsNotSatisfied
	}
	return StatusWrongData
}

// handleAuthenticateSign implements spec.md §4.5 sign mode. The four
// predicates run in the exact order the spec requires (p1, length, tag,
// "load") since hosts infer cause from which status class comes back;
// reordering them is an interop break, not a style choice.
func handleAuthenticateSign(c Crypto, presence PresenceTester, counter CounterStore, p1 byte, req authenticateRequest) (*authenticateResponse, uint16) {
	if p1 != ControlEnforceSign {
		return nil, StatusWrongPayload
	}
	if len(req.KeyHandle) != KHSize {
		return nil, StatusWrongPayload
	}
	h := parseKeyHandle(req.KeyHandle)
	if !verifyKeyHandle(c, h, req.AppID) {
		return nil, StatusWrongPayload
	}
	// "load_private" has no separate step in this facade: SignWithHandle
	// below re-derives the same key deterministically (spec.md §4.3
	// load_private, §9 "type punning" note).

	if !presence.Test() {
		return nil, StatusConditionsNotSatisfied
	}

	count, err := counter.IncrementAndRead()
	if err != nil {
		return nil, StatusInsufficientMemory
	}

	var countBE [4]byte
	countBE[0] = byte(count >> 24)
	countBE[1] = byte(count >> 16)
	countBE[2] = byte(count >> 8)
	countBE[3] = byte(count)

	// Assertion hash, spec.md §4.5 step 4, in exact field order:
	// app_id ‖ user_presence_byte ‖ count_be ‖ challenge.
	hh := sha256.New()
	hh.Write(req.AppID[:])
	hh.Write([]byte{0x01})
	hh.Write(countBE[:])
	hh.Write(req.Challenge[:])
	hash := hh.Sum(nil)

	r, s, err := c.SignWithHandle(h.Marshal(), [32]byte(hash))
	if err != nil {
		return nil, StatusInsufficientMemory
	}
	der, err := encodeDERSignature(r, s)
	if err != nil {
		return nil, StatusInsufficientMemory
	}

	return &authenticateResponse{userPresence: 0x01, counter: countBE, sig: der}, StatusNoError
}

// writeAuthenticateResponse appends the Authenticate-Sign response body
// (spec.md §4.5 step 6): user_presence_byte, count_be, DER signature.
func writeAuthenticateResponse(w *responseWriter, resp *authenticateResponse) {
	w.append([]byte{resp.userPresence})
	w.append(resp.counter[:])
	w.append(resp.sig)
}
