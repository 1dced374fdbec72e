// Package u2f implements the device-side core of a FIDO U2F authenticator:
// the request dispatcher and the Register and Authenticate command
// handlers. It turns APDU-framed requests into signed attestations and
// assertions using device-held key material and a user-presence signal.
//
// Transport framing (APDU/HID/NFC assembly), the primitive crypto engine,
// persistent key/counter storage, and the physical user-presence indicator
// are all external collaborators, injected through the Crypto, CounterStore,
// and PresenceTester interfaces.
package u2f

// Command codes (ins byte of the request APDU).
const (
	InsRegister     byte = 0x01
	InsAuthenticate byte = 0x02
	InsVersion      byte = 0x03
)

// Vendor command range, handled only via VendorHook (see Dispatcher).
const (
	insVendorFirst byte = 0x40
	insVendorLast  byte = 0xBF
)

// Authenticate control byte (p1).
const (
	ControlCheckOnly   byte = 0x07
	ControlEnforceSign byte = 0x03
	ControlDontEnforce byte = 0x08 // rejected: see DESIGN.md Open Questions
)

// Status words, big-endian u16 on the wire.
const (
	StatusNoError                uint16 = 0x9000
	StatusConditionsNotSatisfied uint16 = 0x6985
	StatusWrongData              uint16 = 0x6A80
	StatusWrongLength            uint16 = 0x6700
	StatusWrongPayload           uint16 = 0x6A80 // same class as WrongData in U2F
	StatusClassNotSupported      uint16 = 0x6E00
	StatusInsNotSupported        uint16 = 0x6D00
	StatusInsufficientMemory     uint16 = 0x6A84
)

// versionString is the ASCII U2F_VERSION response body (spec.md §6).
const versionString = "U2F_V2"

// VersionString exports versionString for callers outside this package
// that need to display it (cmd/u2fauthd's version subcommand).
const VersionString = versionString

// KHKeySize and KHTagSize together fix the on-wire Key Handle layout
// (spec.md §3). KHTagSize must be <= sha256.Size (32).
const (
	KHKeySize = 32
	KHTagSize = 32
	KHSize    = KHKeySize + KHTagSize
)

// Sizes used throughout the wire formats (spec.md §3).
const (
	challengeSize = 32
	appIDSize     = 32
)

// maxDERSignatureSize bounds a P-256 ECDSA signature DER encoding
// (spec.md §4.6): SEQUENCE, two INTEGERs each at most 33 bytes.
const maxDERSignatureSize = 72
