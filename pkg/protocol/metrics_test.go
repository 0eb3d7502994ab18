package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aacskit/aacs/internal/backend"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(operation, result string) float64 {
	return testutil.ToFloat64(operations.WithLabelValues(operation, result))
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "ok", resultLabel(nil))
	assert.Equal(t, "VerificationFailure", resultLabel(ErrVerificationFailure))
	assert.Equal(t, "InvalidPoint", resultLabel(fmt.Errorf("bus key: %w", &Error{Code: ErrInvalidPoint.Code})))
	assert.Equal(t, "Failure", resultLabel(errors.New("unclassified")))
}

func TestEngineCountsOperations(t *testing.T) {
	e := NewEngine(&backend.Native{})
	key := make([]byte, 16)

	ok := counter("cmac16", "ok")
	failed := counter("cmac16", "Failure")
	_, err := e.CMAC16(key, key)
	require.NoError(t, err)
	_, err = e.CMAC16(key[:15], key)
	require.Error(t, err)
	assert.Equal(t, ok+1, counter("cmac16", "ok"))
	assert.Equal(t, failed+1, counter("cmac16", "Failure"))

	rejected := counter("verify_aacs_la", "VerificationFailure")
	malformed := counter("verify_aacs_la", "SignatureBuildFailure")
	signature := make([]byte, SignatureLength)
	signature[19], signature[39] = 1, 1
	require.ErrorIs(t, e.VerifyAACSLA(signature, []byte("data")), ErrVerificationFailure)
	require.ErrorIs(t, e.VerifyAACSLA(signature[:10], []byte("data")), ErrSignatureBuildFailure)
	assert.Equal(t, rejected+1, counter("verify_aacs_la", "VerificationFailure"))
	assert.Equal(t, malformed+1, counter("verify_aacs_la", "SignatureBuildFailure"))
}

func TestMetricsRegistry(t *testing.T) {
	e := NewEngine(&backend.Native{})
	_, err := e.CreateNonce(NonceLength)
	require.NoError(t, err)

	families, err := Metrics().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "aacs_operations_total")
}
