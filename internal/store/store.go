// Package store persists the counter and device key material spec.md §3
// and §6 call out as externally-managed state: it is the concrete backing
// for u2f.CounterStore plus the master key / attestation material the
// Crypto facade needs at startup.
//
// Grounded on the device-onboarding pack member's sqlite-backed device
// state (kgiusti-go-fdo-server's cmd/config.go DatabaseConfig.getState),
// adapted down to the much smaller persisted surface a U2F authenticator
// needs: one counter row, one key-material row.
package store

import (
	"errors"
	"math"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrCounterExhausted is returned once the stored counter has reached
// 2^32-1: spec.md §7/§9 leaves wrap behavior undefined, and this store's
// policy is to refuse further increments rather than silently wrap.
var ErrCounterExhausted = errors.New("store: counter exhausted")

type counterRow struct {
	ID    uint `gorm:"primaryKey"`
	Value uint32
}

type keyMaterialRow struct {
	ID              uint `gorm:"primaryKey"`
	MasterKey       []byte
	AttestationKey  []byte // PKCS#8 DER
	AttestationCert []byte // X.509 DER
}

// SQLStore is a gorm/sqlite-backed implementation of u2f.CounterStore plus
// a key-material accessor. It is deliberately small: a single counter row
// and a single key-material row, both keyed by ID 1.
type SQLStore struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the sqlite database at dsn and runs
// its migrations.
func Open(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&counterRow{}, &keyMaterialRow{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// IncrementAndRead implements u2f.CounterStore: it commits the
// incremented value before returning it, so the signature over that value
// (spec.md §4.5 step 5) is never computed for a count the device could
// lose on power loss (spec.md §9).
func (s *SQLStore) IncrementAndRead() (uint32, error) {
	var next uint32
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row counterRow
		if err := tx.FirstOrCreate(&row, counterRow{ID: 1}).Error; err != nil {
			return err
		}
		if row.Value == math.MaxUint32 {
			return ErrCounterExhausted
		}
		row.Value++
		next = row.Value
		return tx.Save(&row).Error
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Counter returns the current counter value without incrementing it.
func (s *SQLStore) Counter() (uint32, error) {
	var row counterRow
	if err := s.db.FirstOrCreate(&row, counterRow{ID: 1}).Error; err != nil {
		return 0, err
	}
	return row.Value, nil
}

// SetKeyMaterial persists the master key, attestation private key (PKCS#8
// DER), and attestation certificate (X.509 DER). Intended for first-time
// provisioning; overwrites any existing row.
func (s *SQLStore) SetKeyMaterial(masterKey, attestationKeyPKCS8, attestationCertDER []byte) error {
	row := keyMaterialRow{
		ID:              1,
		MasterKey:       masterKey,
		AttestationKey:  attestationKeyPKCS8,
		AttestationCert: attestationCertDER,
	}
	return s.db.Save(&row).Error
}

// KeyMaterial loads the persisted master key, attestation private key
// (PKCS#8 DER) and attestation certificate (X.509 DER).
func (s *SQLStore) KeyMaterial() (masterKey, attestationKeyPKCS8, attestationCertDER []byte, err error) {
	var row keyMaterialRow
	if err := s.db.First(&row, 1).Error; err != nil {
		return nil, nil, nil, err
	}
	return row.MasterKey, row.AttestationKey, row.AttestationCert, nil
}

// Reset drops the counter and key-material rows, letting the next
// IncrementAndRead/KeyMaterial call start from scratch. Intended for
// cmd/u2fauthd's reset-counter, a test-harness convenience with no
// equivalent on a real device (see that command's help text).
func (s *SQLStore) Reset() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", 1).Delete(&counterRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", 1).Delete(&keyMaterialRow{}).Error
	})
}

// Close releases the underlying database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
