package u2f

import "errors"

// RequestAPDU is a fully-assembled U2F command as delivered by the
// transport (HID/NFC framing is out of scope, spec.md §1).
type RequestAPDU struct {
	CLA byte
	INS byte
	P1  byte
	P2  byte

	Payload []byte
}

// ParseRequestAPDU assembles a RequestAPDU from the raw header and length
// bytes a transport would hand over, reconstructing lc from its three
// big-endian bytes (spec.md §3) and validating that payload is exactly lc
// bytes long.
func ParseRequestAPDU(cla, ins, p1, p2, lc1, lc2, lc3 byte, payload []byte) (RequestAPDU, error) {
	lc := int(lc3) | int(lc2)<<8 | int(lc1)<<16
	if len(payload) != lc {
		return RequestAPDU{}, errors.New("u2f: payload length does not match lc")
	}
	return RequestAPDU{CLA: cla, INS: ins, P1: p1, P2: p2, Payload: payload}, nil
}

// registerRequest is the parsed payload of a U2F_REGISTER command
// (spec.md §3: challenge[32] ‖ app_id[32]).
type registerRequest struct {
	Challenge [32]byte
	AppID     [32]byte
}

func parseRegisterRequest(payload []byte) (registerRequest, bool) {
	if len(payload) != challengeSize+appIDSize {
		return registerRequest{}, false
	}
	var rr registerRequest
	copy(rr.Challenge[:], payload[:challengeSize])
	copy(rr.AppID[:], payload[challengeSize:])
	return rr, true
}

// authenticateRequest is the parsed payload of a U2F_AUTHENTICATE command
// (spec.md §3: challenge[32] ‖ app_id[32] ‖ khl:u8 ‖ key_handle[khl]).
type authenticateRequest struct {
	Challenge [32]byte
	AppID     [32]byte
	KeyHandle []byte
}

func parseAuthenticateRequest(payload []byte) (authenticateRequest, bool) {
	if len(payload) < challengeSize+appIDSize+1 {
		return authenticateRequest{}, false
	}
	var ar authenticateRequest
	copy(ar.Challenge[:], payload[:challengeSize])
	copy(ar.AppID[:], payload[challengeSize:challengeSize+appIDSize])

	khl := int(payload[challengeSize+appIDSize])
	rest := payload[challengeSize+appIDSize+1:]
	if len(rest) != khl {
		return authenticateRequest{}, false
	}
	ar.KeyHandle = rest
	return ar, true
}
