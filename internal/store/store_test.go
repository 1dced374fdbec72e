package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCounterStartsAtZeroAndIncrements(t *testing.T) {
	s := openTest(t)

	v, err := s.Counter()
	require.NoError(t, err)
	require.Equal(t, uint32(0), v)

	for want := uint32(1); want <= 5; want++ {
		got, err := s.IncrementAndRead()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestCounterExhaustionRefusesToWrap(t *testing.T) {
	s := openTest(t)

	// Force the row into existence, then push it to the max value.
	_, err := s.Counter()
	require.NoError(t, err)
	require.NoError(t, s.db.Model(&counterRow{}).Where("id = ?", 1).Update("value", ^uint32(0)).Error)

	_, err = s.IncrementAndRead()
	require.ErrorIs(t, err, ErrCounterExhausted)
}

func TestResetClearsCounterAndKeyMaterial(t *testing.T) {
	s := openTest(t)

	_, err := s.IncrementAndRead()
	require.NoError(t, err)
	require.NoError(t, s.SetKeyMaterial([]byte("master"), []byte("attestation-key"), []byte("attestation-cert")))

	require.NoError(t, s.Reset())

	v, err := s.Counter()
	require.NoError(t, err)
	require.Equal(t, uint32(0), v)

	_, _, _, err = s.KeyMaterial()
	require.Error(t, err)
}

func TestKeyMaterialRoundTrip(t *testing.T) {
	s := openTest(t)

	require.NoError(t, s.SetKeyMaterial([]byte("master"), []byte("attestation-key"), []byte("attestation-cert")))

	mk, ak, cert, err := s.KeyMaterial()
	require.NoError(t, err)
	require.Equal(t, []byte("master"), mk)
	require.Equal(t, []byte("attestation-key"), ak)
	require.Equal(t, []byte("attestation-cert"), cert)
}
