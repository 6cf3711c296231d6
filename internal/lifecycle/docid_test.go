package lifecycle

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"docsaga/internal/backend"
)

func TestDeriveDocumentID(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		want      string
	}{
		{
			name:      "dashed uuid",
			canonical: "11111111-2222-3333-4444-555555555555",
			want:      "doc_11111111222233334444555555555555",
		},
		{
			name:      "uppercase input is lowered",
			canonical: "AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE",
			want:      "doc_aaaaaaaabbbbccccddddeeeeeeeeeeee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveDocumentID(tt.canonical))
		})
	}
}

func TestUUIDFromDocumentID(t *testing.T) {
	tests := []struct {
		name       string
		documentID string
		want       string
		wantOK     bool
	}{
		{
			name:       "round trip",
			documentID: "doc_11111111222233334444555555555555",
			want:       "11111111-2222-3333-4444-555555555555",
			wantOK:     true,
		},
		{
			name:       "missing prefix",
			documentID: "11111111222233334444555555555555",
			wantOK:     false,
		},
		{
			name:       "too short",
			documentID: "doc_1111",
			wantOK:     false,
		},
		{
			name:       "uppercase hex is rejected",
			documentID: "doc_AAAAAAAA222233334444555555555555",
			wantOK:     false,
		},
		{
			name:       "legacy opaque id",
			documentID: "legacy-4711",
			wantOK:     false,
		},
		{
			name:       "empty",
			documentID: "",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := UUIDFromDocumentID(tt.documentID)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentIDRoundTrip(t *testing.T) {
	for i := 0; i < 20; i++ {
		canonical := uuid.NewString()
		recovered, ok := UUIDFromDocumentID(DeriveDocumentID(canonical))
		assert.True(t, ok)
		assert.Equal(t, canonical, recovered)
	}
}

func TestRoutesTo(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    map[string]bool
	}{
		{
			name:    "title routes to vector only",
			payload: map[string]any{"title": "x"},
			want:    map[string]bool{"vector": true},
		},
		{
			name:    "file_path routes to file only",
			payload: map[string]any{"file_path": "/a.pdf"},
			want:    map[string]bool{"file": true},
		},
		{
			name:    "file_hash routes to relational",
			payload: map[string]any{"file_hash": "abc123"},
			want:    map[string]bool{"relational": true},
		},
		{
			name:    "tags route to graph",
			payload: map[string]any{"tags": []any{"steuerrecht"}},
			want:    map[string]bool{"graph": true},
		},
		{
			name:    "unknown fields route nowhere",
			payload: map[string]any{"unrelated": 1},
			want:    map[string]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, kind := range backend.Kinds() {
				assert.Equal(t, tt.want[string(kind)], routesTo(kind, tt.payload), "kind %s", kind)
			}
		})
	}
}
