package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openincentives/matchengine/pkg/costs"
)

type recordingAlerter struct {
	subjects []string
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func TestBudgetWatcherUnderBudget(t *testing.T) {
	rec := &recordingAlerter{}
	w := NewBudgetWatcher(rec, 1.0)

	exceeded, err := w.Check(costs.Stats{TotalCost: 0.5})
	require.NoError(t, err)
	assert.False(t, exceeded)
	assert.Empty(t, rec.subjects)
}

func TestBudgetWatcherFiresOnce(t *testing.T) {
	rec := &recordingAlerter{}
	w := NewBudgetWatcher(rec, 1.0)

	exceeded, err := w.Check(costs.Stats{TotalCost: 1.5, TotalCalls: 10})
	require.NoError(t, err)
	assert.True(t, exceeded)

	// Second check stays exceeded but does not alert again.
	exceeded, err = w.Check(costs.Stats{TotalCost: 2.0})
	require.NoError(t, err)
	assert.True(t, exceeded)
	assert.Len(t, rec.subjects, 1)
}

func TestBudgetWatcherDisabled(t *testing.T) {
	rec := &recordingAlerter{}
	w := NewBudgetWatcher(rec, 0)

	exceeded, err := w.Check(costs.Stats{TotalCost: 100})
	require.NoError(t, err)
	assert.False(t, exceeded)
	assert.Empty(t, rec.subjects)
}

func TestBudgetWatcherNilAlerter(t *testing.T) {
	w := NewBudgetWatcher(nil, 1.0)

	exceeded, err := w.Check(costs.Stats{TotalCost: 2.0})
	require.NoError(t, err)
	assert.True(t, exceeded)
}
