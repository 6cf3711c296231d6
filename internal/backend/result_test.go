package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromLegacyError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantOutcome Outcome
	}{
		{
			name:        "nil error is applied",
			err:         nil,
			wantOutcome: OutcomeApplied,
		},
		{
			name:        "not configured",
			err:         errors.New("graph backend not configured"),
			wantOutcome: OutcomeUnavailable,
		},
		{
			name:        "not available",
			err:         errors.New("Vector service NOT AVAILABLE right now"),
			wantOutcome: OutcomeUnavailable,
		},
		{
			name:        "unavailable",
			err:         errors.New("503 service unavailable"),
			wantOutcome: OutcomeUnavailable,
		},
		{
			name:        "ordinary failure",
			err:         errors.New("connection reset by peer"),
			wantOutcome: OutcomeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FromLegacyError(tt.err)
			assert.Equal(t, tt.wantOutcome, res.Outcome)
			switch tt.wantOutcome {
			case OutcomeUnavailable:
				assert.Equal(t, tt.err.Error(), res.Reason)
				assert.Nil(t, res.Err)
			case OutcomeFailed:
				assert.Equal(t, tt.err, res.Err)
			}
		})
	}
}

func TestOperationError(t *testing.T) {
	cause := errors.New("row locked")
	err := &OperationError{Backend: Relational, Operation: "update", Cause: cause}

	assert.Equal(t, "relational update failed: row locked", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestUnconfiguredAdapter(t *testing.T) {
	a := Unconfigured(Graph)
	assert.Equal(t, Graph, a.Kind())

	for _, res := range []Result{
		a.Create(context.Background(), "doc_x", nil),
		a.Read(context.Background(), "doc_x"),
		a.Update(context.Background(), "doc_x", nil),
		a.Delete(context.Background(), "doc_x", DeleteOptions{Mode: DeleteHard}),
	} {
		assert.Equal(t, OutcomeUnavailable, res.Outcome)
		assert.Equal(t, "graph backend not configured", res.Reason)
	}
}

func TestSetAdapterFallsBackToUnconfigured(t *testing.T) {
	s := Set{}
	a := s.Adapter(Vector)
	res := a.Read(context.Background(), "doc_x")
	assert.Equal(t, OutcomeUnavailable, res.Outcome)
}

func TestSetConfigured(t *testing.T) {
	s := Set{Vector: Unconfigured(Vector), Graph: nil}
	assert.True(t, s.Configured(Vector))
	assert.False(t, s.Configured(Graph), "nil entry counts as absent")
	assert.False(t, s.Configured(File))
}

func TestApplied_NilPayload(t *testing.T) {
	res := Applied(nil)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.NotNil(t, res.Payload)
}

func TestKindIDField(t *testing.T) {
	assert.Equal(t, "vector_id", Vector.IDField())
	assert.Equal(t, "graph_id", Graph.IDField())
	assert.Equal(t, "relational_id", Relational.IDField())
	assert.Equal(t, "file_storage_id", File.IDField())
}
