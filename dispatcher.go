package u2f

import (
	"log/slog"
)

// PresenceTester is the user-presence collaborator (spec.md §6): a local,
// physical confirmation gating signing operations. Its boolean result is
// the only cancellation signal visible to the core (spec.md §5).
type PresenceTester interface {
	Test() bool
}

// CounterStore is the monotonic-counter collaborator (spec.md §3, §5, §6).
// IncrementAndRead must be atomic with respect to power loss: either the
// new value is durably observed, or neither the increment nor the read
// happened. Once the stored counter has reached 2^32-1, implementations
// must return an error rather than silently wrap (spec.md §7, §9 Open
// Questions — this core's chosen policy).
type CounterStore interface {
	IncrementAndRead() (uint32, error)
}

// VendorHook is the vendor-extension collaborator (spec.md §1, §4.1 step 3,
// §9 Open Questions). It may intercept any command before the core's own
// demultiplex runs; returning handled=false lets the dispatcher fall
// through to its normal command table. The default hook used by cmd/u2fauthd
// declines every command, so a vendor-range command falls to the default
// case of the dispatcher's command table, which returns
// StatusInsNotSupported (spec.md §9's second suggested policy).
type VendorHook func(ins, p1, p2 byte, payload []byte) (data []byte, status uint16, handled bool)

// declineVendorHook is the default VendorHook: it never intercepts.
func declineVendorHook(byte, byte, byte, []byte) ([]byte, uint16, bool) {
	return nil, 0, false
}

// Dispatcher is the entry point described in spec.md §4.1: given an APDU
// and a response buffer, it populates the buffer with the command's data
// followed by the two-byte status word.
type Dispatcher struct {
	Crypto   Crypto
	Presence PresenceTester
	Counter  CounterStore
	Vendor   VendorHook
	Log      *slog.Logger
}

// NewDispatcher builds a Dispatcher. vendor may be nil, in which case
// every vendor-range command is declined (spec.md §9 Open Questions).
func NewDispatcher(crypto Crypto, presence PresenceTester, counter CounterStore, vendor VendorHook, log *slog.Logger) *Dispatcher {
	if vendor == nil {
		vendor = declineVendorHook
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{Crypto: crypto, Presence: presence, Counter: counter, Vendor: vendor, Log: log}
}

// Dispatch implements spec.md §4.1's algorithm. respBuf must have enough
// capacity for the largest response this dispatcher can produce; an
// undersized buffer is a programmer error (spec.md §4.2) and panics. Such a
// panic is logged at Error level and then re-raised.
func (d *Dispatcher) Dispatch(req RequestAPDU, respBuf []byte) []byte {
	defer func() {
		if r := recover(); r != nil {
			d.Log.Error("u2f programmer error", "ins", req.INS, "panic", r)
			panic(r)
		}
	}()

	var w responseWriter
	w.bind(respBuf)

	status := d.route(req, &w)

	if status != StatusNoError {
		w.reset()
	}

	w.append([]byte{byte(status >> 8), byte(status)})

	d.Log.Debug("u2f request dispatched",
		"ins", req.INS, "p1", req.P1, "lc", len(req.Payload), "status", status)

	return w.bytes()
}

func (d *Dispatcher) route(req RequestAPDU, w *responseWriter) uint16 {
	if req.CLA != 0 {
		return StatusClassNotSupported
	}

	if data, status, handled := d.Vendor(req.INS, req.P1, req.P2, req.Payload); handled {
		w.append(data)
		return status
	}

	switch {
	case req.INS == InsRegister:
		return d.dispatchRegister(req, w)
	case req.INS == InsAuthenticate:
		return d.dispatchAuthenticate(req, w)
	case req.INS == InsVersion:
		return d.dispatchVersion(req, w)
	default:
		// Includes the vendor-range commands (spec.md §9 Open Questions):
		// a VendorHook that declined already returned above, so an
		// undeclared vendor command ends up here same as any other
		// unrecognized INS.
		return StatusInsNotSupported
	}
}

func (d *Dispatcher) dispatchRegister(req RequestAPDU, w *responseWriter) uint16 {
	rr, ok := parseRegisterRequest(req.Payload)
	if !ok {
		return StatusWrongLength
	}

	resp, status := handleRegister(d.Crypto, d.Presence, rr)
	if status != StatusNoError {
		return status
	}
	writeRegisterResponse(w, d.Crypto, resp)
	return StatusNoError
}

func (d *Dispatcher) dispatchAuthenticate(req RequestAPDU, w *responseWriter) uint16 {
	ar, ok := parseAuthenticateRequest(req.Payload)
	if !ok {
		return StatusWrongPayload
	}

	if req.P1 == ControlCheckOnly {
		return handleAuthenticateCheck(d.Crypto, ar)
	}

	// Any other control byte, including ControlDontEnforce, falls through
	// to handleAuthenticateSign's own ordered predicates (spec.md §4.5),
	// whose first check (p1 == SIGN) is what actually rejects it with
	// StatusWrongPayload — per spec.md §9 Open Questions' first
	// alternative for DONT_ENFORCE.
	resp, status := handleAuthenticateSign(d.Crypto, d.Presence, d.Counter, req.P1, ar)
	if status != StatusNoError {
		return status
	}
	writeAuthenticateResponse(w, resp)
	return StatusNoError
}

func (d *Dispatcher) dispatchVersion(req RequestAPDU, w *responseWriter) uint16 {
	if len(req.Payload) != 0 {
		return StatusWrongLength
	}
	w.append([]byte(versionString))
	return StatusNoError
}
