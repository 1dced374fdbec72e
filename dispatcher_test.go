package u2f

import (
	"bytes"
	"testing"

	"github.com/solokeys-go/u2fauth/internal/presence"
)

func newTestDispatcher(t *testing.T, vendor VendorHook) *Dispatcher {
	t.Helper()
	crypto, _ := newTestCrypto(t)
	return NewDispatcher(crypto, &presence.Fake{Default: true}, &fakeCounter{}, vendor, nil)
}

func TestDispatchVersion(t *testing.T) {
	d := newTestDispatcher(t, nil)
	resp := d.Dispatch(RequestAPDU{CLA: 0, INS: InsVersion}, make([]byte, 64))
	want := append([]byte(versionString), 0x90, 0x00)
	if !bytes.Equal(resp, want) {
		t.Errorf("resp = %x, want %x", resp, want)
	}
}

func TestDispatchVersionRejectsPayload(t *testing.T) {
	d := newTestDispatcher(t, nil)
	resp := d.Dispatch(RequestAPDU{CLA: 0, INS: InsVersion, Payload: []byte{1}}, make([]byte, 64))
	if !bytes.Equal(resp, []byte{0x67, 0x00}) {
		t.Errorf("resp = %x, want 6700", resp)
	}
}

func TestDispatchRejectsNonZeroClass(t *testing.T) {
	d := newTestDispatcher(t, nil)
	resp := d.Dispatch(RequestAPDU{CLA: 1, INS: InsVersion}, make([]byte, 64))
	if !bytes.Equal(resp, []byte{0x6E, 0x00}) {
		t.Errorf("resp = %x, want 6E00", resp)
	}
}

func TestDispatchUnknownInstructionIsNotSupported(t *testing.T) {
	d := newTestDispatcher(t, nil)
	resp := d.Dispatch(RequestAPDU{CLA: 0, INS: 0xFF}, make([]byte, 64))
	if !bytes.Equal(resp, []byte{0x6D, 0x00}) {
		t.Errorf("resp = %x, want 6D00", resp)
	}
}

func TestDispatchUndeclaredVendorRangeIsNotSupported(t *testing.T) {
	d := newTestDispatcher(t, nil)
	resp := d.Dispatch(RequestAPDU{CLA: 0, INS: 0x40}, make([]byte, 64))
	if !bytes.Equal(resp, []byte{0x6D, 0x00}) {
		t.Errorf("resp = %x, want 6D00", resp)
	}
}

func TestDispatchVendorHookCanIntercept(t *testing.T) {
	hook := func(ins, p1, p2 byte, payload []byte) ([]byte, uint16, bool) {
		if ins == 0x40 {
			return []byte("vendor-data"), StatusNoError, true
		}
		return nil, 0, false
	}
	d := newTestDispatcher(t, hook)
	resp := d.Dispatch(RequestAPDU{CLA: 0, INS: 0x40}, make([]byte, 64))
	want := append([]byte("vendor-data"), 0x90, 0x00)
	if !bytes.Equal(resp, want) {
		t.Errorf("resp = %x, want %x", resp, want)
	}
}

func TestDispatchDecliningVendorHookFallsThroughToCommandTable(t *testing.T) {
	hook := func(ins, p1, p2 byte, payload []byte) ([]byte, uint16, bool) {
		return nil, 0, false
	}
	d := newTestDispatcher(t, hook)
	resp := d.Dispatch(RequestAPDU{CLA: 0, INS: InsVersion}, make([]byte, 64))
	want := append([]byte(versionString), 0x90, 0x00)
	if !bytes.Equal(resp, want) {
		t.Errorf("resp = %x, want %x", resp, want)
	}
}
