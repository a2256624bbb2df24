package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DecisionStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "decisions.db")
	store, err := NewDecisionStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLogDecisionRoundTripsThroughHistory(t *testing.T) {
	store := newTestStore(t)

	record, err := store.LogDecision(LogDecisionInput{
		Timestamp:     "2026-01-04T10:00:00Z",
		Type:          "failure",
		Scenario:      map[string]interface{}{"serviceId": "checkout"},
		Result:        map[string]interface{}{"confidence": "high"},
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)
	assert.NotZero(t, record.ID)

	history, err := store.GetHistory(GetHistoryOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "failure", history[0].Type)
	assert.Equal(t, "corr-1", history[0].CorrelationID)
}

func TestGetHistoryFiltersByType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LogDecision(LogDecisionInput{
		Timestamp: "2026-01-04T10:00:00Z", Type: "failure",
		Scenario: map[string]interface{}{}, Result: map[string]interface{}{},
	})
	require.NoError(t, err)
	_, err = store.LogDecision(LogDecisionInput{
		Timestamp: "2026-01-04T10:01:00Z", Type: "scaling",
		Scenario: map[string]interface{}{}, Result: map[string]interface{}{},
	})
	require.NoError(t, err)

	history, err := store.GetHistory(GetHistoryOptions{Limit: 10, Type: "scaling"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "scaling", history[0].Type)
}

func TestGetHistoryClampsLimitToMax(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := store.LogDecision(LogDecisionInput{
			Timestamp: "2026-01-04T10:00:00Z", Type: "risk",
			Scenario: map[string]interface{}{}, Result: map[string]interface{}{},
		})
		require.NoError(t, err)
	}

	history, err := store.GetHistory(GetHistoryOptions{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestGetCountReflectsFilteredType(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LogDecision(LogDecisionInput{
		Timestamp: "2026-01-04T10:00:00Z", Type: "failure",
		Scenario: map[string]interface{}{}, Result: map[string]interface{}{},
	})
	require.NoError(t, err)

	count, err := store.GetCount("failure")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.GetCount("scaling")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
