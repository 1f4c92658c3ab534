package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeFailure, Outcome(errors.New("boom")))
}

func TestObserveCredential(t *testing.T) {
	before := testutil.ToFloat64(CredentialResolutions.WithLabelValues("ambient", OutcomeSuccess))
	ObserveCredential("ambient", OutcomeSuccess)
	assert.Equal(t, before+1, testutil.ToFloat64(CredentialResolutions.WithLabelValues("ambient", OutcomeSuccess)))
}

func TestObserveOpen(t *testing.T) {
	before := testutil.ToFloat64(ConnectionOpens.WithLabelValues(OutcomeSuccess))
	ObserveOpen(OutcomeSuccess, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ConnectionOpens.WithLabelValues(OutcomeSuccess)))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("open")
	assert.Equal(t, "open", timer.Name())

	first := timer.Stop()
	assert.GreaterOrEqual(t, timer.Stop(), first)
}
