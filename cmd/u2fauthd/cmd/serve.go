package cmd

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	u2f "github.com/solokeys-go/u2fauth"
	"github.com/solokeys-go/u2fauth/internal/metrics"
	"github.com/solokeys-go/u2fauth/internal/presence"
	"github.com/solokeys-go/u2fauth/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the line-delimited hex-APDU TCP test harness",
	Long: `serve listens for TCP connections and treats each line as one hex-
encoded request APDU (cla ins p1 p2 lc1 lc2 lc3 payload), writing back one
hex-encoded response line per request. Only one connection is served at a
time: spec.md's transport-serialization requirement (§5) is enforced here
since there is no real, naturally-serializing HID/NFC link underneath.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("address", "127.0.0.1:7863", "TCP address to listen on")
	serveCmd.Flags().String("metrics-address", "", "If set, also serve Prometheus metrics on this address")
	serveCmd.Flags().Int("presence-timeout-seconds", 10, "Seconds to wait for a user-presence confirmation")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Only a flag the user actually passed overrides what loadConfig
	// already decoded from the config file/environment; the flags'
	// defaults below exist for the no-config-file case.
	if cfg.Serve.Address == "" || cmd.Flags().Changed("address") {
		cfg.Serve.Address, _ = cmd.Flags().GetString("address")
	}
	if cmd.Flags().Changed("metrics-address") {
		cfg.Serve.MetricsAddress, _ = cmd.Flags().GetString("metrics-address")
	}
	if cfg.Presence.TimeoutSeconds == 0 || cmd.Flags().Changed("presence-timeout-seconds") {
		cfg.Presence.TimeoutSeconds, _ = cmd.Flags().GetInt("presence-timeout-seconds")
	}

	db, err := store.Open(cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	crypto, err := loadOrProvisionCrypto(db)
	if err != nil {
		return fmt.Errorf("provision key material: %w", err)
	}

	gate := presence.CLIGate{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Timeout: cfg.PresenceTimeout()}
	dispatcher := u2f.NewDispatcher(crypto, gate, db, nil, slog.Default())

	if cfg.Serve.MetricsAddress != "" {
		go serveMetrics(cfg.Serve.MetricsAddress)
	}

	return serveTCP(cfg.Serve.Address, dispatcher, db)
}

// loadOrProvisionCrypto loads persisted key material, generating and
// persisting a fresh master key and attestation keypair on first run
// (spec.md §1 treats key provisioning as out of this core's scope; this
// harness provides the minimum needed to exercise it end to end).
func loadOrProvisionCrypto(db *store.SQLStore) (u2f.Crypto, error) {
	masterKey, attestationKeyDER, attestationCertDER, err := db.KeyMaterial()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		masterKey, attestationKeyDER, attestationCertDER, err = provisionKeyMaterial(db)
	}
	if err != nil {
		return nil, err
	}

	attestationKey, err := x509.ParsePKCS8PrivateKey(attestationKeyDER)
	if err != nil {
		return nil, fmt.Errorf("parse attestation key: %w", err)
	}
	ecKey, ok := attestationKey.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("attestation key is not ECDSA")
	}

	return u2f.NewDefaultCrypto(masterKey, ecKey, attestationCertDER), nil
}

func provisionKeyMaterial(db *store.SQLStore) (masterKey, attestationKeyDER, attestationCertDER []byte, err error) {
	masterKey = make([]byte, 32)
	if _, err = rand.Read(masterKey); err != nil {
		return nil, nil, nil, err
	}

	attestationKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, nil, err
	}
	attestationKeyDER, err = x509.MarshalPKCS8PrivateKey(attestationKey)
	if err != nil {
		return nil, nil, nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{Organization: []string{"u2fauthd test harness"}, CommonName: "u2fauthd attestation"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(10, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	attestationCertDER, err = x509.CreateCertificate(rand.Reader, template, template, &attestationKey.PublicKey, attestationKey)
	if err != nil {
		return nil, nil, nil, err
	}

	if err = db.SetKeyMaterial(masterKey, attestationKeyDER, attestationCertDER); err != nil {
		return nil, nil, nil, err
	}
	return masterKey, attestationKeyDER, attestationCertDER, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "err", err)
	}
}

// serveTCP accepts and fully drains one connection before accepting the
// next: there is no per-connection goroutine, so a second client simply
// waits in the listener's backlog rather than being interleaved with the
// first (spec.md §5's transport-serialization requirement).
func serveTCP(addr string, dispatcher *u2f.Dispatcher, db *store.SQLStore) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer lis.Close()
	slog.Info("u2fauthd listening", "addr", lis.Addr().String())

	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		handleConn(conn, dispatcher, db)
	}
}

func handleConn(conn net.Conn, dispatcher *u2f.Dispatcher, db *store.SQLStore) {
	defer conn.Close()
	id := uuid.NewString()
	log := slog.With("conn", id, "remote", conn.RemoteAddr().String())
	log.Info("connection accepted")
	defer log.Info("connection closed")

	scanner := bufio.NewScanner(conn)
	respBuf := make([]byte, 2048)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		req, err := parseHexAPDU(line)
		if err != nil {
			fmt.Fprintf(conn, "error: %v\n", err)
			continue
		}

		resp := dispatcher.Dispatch(req, respBuf)
		status := uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
		metrics.ObserveStatus(req.INS, status)
		if v, err := db.Counter(); err == nil {
			metrics.CounterValue.Set(float64(v))
		}

		fmt.Fprintln(conn, hex.EncodeToString(resp))
	}
}

// parseHexAPDU decodes a hex line as cla ins p1 p2 lc1 lc2 lc3 ‖ payload.
func parseHexAPDU(line string) (u2f.RequestAPDU, error) {
	raw, err := hex.DecodeString(line)
	if err != nil {
		return u2f.RequestAPDU{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) < 7 {
		return u2f.RequestAPDU{}, fmt.Errorf("apdu too short: need at least 7 header bytes, got %d", len(raw))
	}
	return u2f.ParseRequestAPDU(raw[0], raw[1], raw[2], raw[3], raw[4], raw[5], raw[6], raw[7:])
}
