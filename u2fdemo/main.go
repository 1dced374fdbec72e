// u2fdemo drives the u2f package's Dispatcher through one full
// Register+Authenticate round trip in-process, then verifies both
// responses with internal/relyingparty the way a real relying party would.
// It replaces the teacher's browser-facing net/http demo (there is no
// browser client side to a raw-APDU device core); what's kept is the same
// idea, a runnable end-to-end demonstration of the library.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"log/slog"
	"math/big"
	"os"
	"time"

	"hermannm.dev/devlog"

	u2f "github.com/solokeys-go/u2fauth"
	"github.com/solokeys-go/u2fauth/internal/presence"
	"github.com/solokeys-go/u2fauth/internal/relyingparty"
)

func main() {
	log := slog.New(devlog.NewHandler(os.Stdout, nil))
	slog.SetDefault(log)

	crypto, err := ephemeralCrypto()
	if err != nil {
		log.Error("build crypto facade", "err", err)
		os.Exit(1)
	}

	dispatcher := u2f.NewDispatcher(crypto, &presence.Fake{Default: true}, &inMemoryCounter{}, nil, log)

	appID := sha256.Sum256([]byte("https://example.com"))
	registerChallenge := sha256.Sum256([]byte("register-challenge"))

	log.Info("dispatching REGISTER")
	registerResp := dispatcher.Dispatch(registerAPDU(registerChallenge, appID), make([]byte, 2048))
	if !statusOK(registerResp) {
		log.Error("register failed", "status", statusOf(registerResp))
		os.Exit(1)
	}

	reg, err := relyingparty.ParseRegistrationResponse(registerResp[:len(registerResp)-2])
	if err != nil {
		log.Error("parse registration response", "err", err)
		os.Exit(1)
	}
	if err := reg.VerifyRegistrationSignature(appID, registerChallenge); err != nil {
		log.Error("attestation signature did not verify", "err", err)
		os.Exit(1)
	}
	log.Info("REGISTER verified", "key_handle_len", len(reg.KeyHandle))

	authChallenge := sha256.Sum256([]byte("authenticate-challenge"))
	log.Info("dispatching AUTHENTICATE")
	authResp := dispatcher.Dispatch(authenticateAPDU(u2f.ControlEnforceSign, authChallenge, appID, reg.KeyHandle), make([]byte, 512))
	if !statusOK(authResp) {
		log.Error("authenticate failed", "status", statusOf(authResp))
		os.Exit(1)
	}

	assertion, err := relyingparty.ParseAssertion(authResp[:len(authResp)-2])
	if err != nil {
		log.Error("parse assertion", "err", err)
		os.Exit(1)
	}
	if err := assertion.VerifySignature(&reg.PubKey, appID, authChallenge); err != nil {
		log.Error("assertion signature did not verify", "err", err)
		os.Exit(1)
	}
	log.Info("AUTHENTICATE verified", "counter", assertion.Counter)
}

func statusOK(resp []byte) bool {
	return statusOf(resp) == u2f.StatusNoError
}

func statusOf(resp []byte) uint16 {
	return uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
}

func registerAPDU(challenge, appID [32]byte) u2f.RequestAPDU {
	payload := append(append([]byte{}, challenge[:]...), appID[:]...)
	return u2f.RequestAPDU{CLA: 0, INS: u2f.InsRegister, Payload: payload}
}

func authenticateAPDU(p1 byte, challenge, appID [32]byte, keyHandle []byte) u2f.RequestAPDU {
	payload := append(append([]byte{}, challenge[:]...), appID[:]...)
	payload = append(payload, byte(len(keyHandle)))
	payload = append(payload, keyHandle...)
	return u2f.RequestAPDU{CLA: 0, INS: u2f.InsAuthenticate, P1: p1, Payload: payload}
}

// ephemeralCrypto builds a one-shot Crypto facade: a random master key and
// a freshly generated, self-signed attestation certificate. Nothing here
// is persisted; the demo is meant to be run once per process.
func ephemeralCrypto() (u2f.Crypto, error) {
	masterKey := make([]byte, 32)
	if _, err := rand.Read(masterKey); err != nil {
		return nil, err
	}

	attestationKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "u2fdemo attestation"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &attestationKey.PublicKey, attestationKey)
	if err != nil {
		return nil, err
	}

	return u2f.NewDefaultCrypto(masterKey, attestationKey, certDER), nil
}

// inMemoryCounter is a process-local u2f.CounterStore: enough for one demo
// run, with none of internal/store's durability guarantees.
type inMemoryCounter struct {
	value uint32
}

func (c *inMemoryCounter) IncrementAndRead() (uint32, error) {
	c.value++
	return c.value, nil
}
