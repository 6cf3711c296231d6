package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docsaga/internal/backend"
)

func TestGate_Check(t *testing.T) {
	tests := []struct {
		name       string
		gate       *Gate
		kind       backend.Kind
		op         Operation
		payload    map[string]any
		wantErr    bool
		wantReason string
	}{
		{
			name:    "nil gate allows everything",
			gate:    nil,
			kind:    backend.Vector,
			op:      OpCreate,
			wantErr: false,
		},
		{
			name:    "nil policy allows everything",
			gate:    NewGate(nil),
			kind:    backend.Vector,
			op:      OpDelete,
			wantErr: false,
		},
		{
			name: "vector create requires chunks",
			gate: NewGate(DefaultPolicy()),
			kind: backend.Vector,
			op:   OpCreate,
			payload: map[string]any{
				"title": "no chunks here",
			},
			wantErr:    true,
			wantReason: `payload field "chunks" is required`,
		},
		{
			name: "empty chunks slice counts as missing",
			gate: NewGate(DefaultPolicy()),
			kind: backend.Vector,
			op:   OpCreate,
			payload: map[string]any{
				"chunks": []any{},
			},
			wantErr: true,
		},
		{
			name: "relational create requires a title",
			gate: NewGate(DefaultPolicy()),
			kind: backend.Relational,
			op:   OpCreate,
			payload: map[string]any{
				"title": "",
			},
			wantErr: true,
		},
		{
			name: "file create requires a file path",
			gate: NewGate(DefaultPolicy()),
			kind: backend.File,
			op:   OpCreate,
			payload: map[string]any{
				"binary_content": "bytes",
			},
			wantErr: true,
		},
		{
			name: "complete create payload passes",
			gate: NewGate(DefaultPolicy()),
			kind: backend.Vector,
			op:   OpCreate,
			payload: map[string]any{
				"chunks": []any{"c1"},
			},
			wantErr: false,
		},
		{
			name:    "updates have no required fields under the default policy",
			gate:    NewGate(DefaultPolicy()),
			kind:    backend.Vector,
			op:      OpUpdate,
			payload: map[string]any{},
			wantErr: false,
		},
		{
			name: "operation allow-list rejects unlisted operations",
			gate: NewGate(&RulePolicy{
				AllowedOperations: map[backend.Kind][]Operation{
					backend.Graph: {OpCreate, OpRead},
				},
			}),
			kind:       backend.Graph,
			op:         OpDelete,
			wantErr:    true,
			wantReason: "operation not permitted",
		},
		{
			name: "allow-list only binds the backends it names",
			gate: NewGate(&RulePolicy{
				AllowedOperations: map[backend.Kind][]Operation{
					backend.Graph: {OpCreate},
				},
			}),
			kind:    backend.Vector,
			op:      OpDelete,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gate.Check(tt.kind, tt.op, tt.payload)

			if tt.wantErr {
				var violation *Violation
				assert.ErrorAs(t, err, &violation)
				assert.Equal(t, tt.kind, violation.Backend)
				assert.Equal(t, tt.op, violation.Operation)
				if tt.wantReason != "" {
					assert.Contains(t, err.Error(), tt.wantReason)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
