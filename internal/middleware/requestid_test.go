package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveWithID runs RequestID with the given incoming header and returns the
// id seen by the handler and the response header.
func serveWithID(t *testing.T, incoming string) (seen, echoed string) {
	t.Helper()
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/analytics/trackedEntities/query", nil)
	if incoming != "" {
		req.Header.Set(RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return seen, rec.Header().Get(RequestIDHeader)
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"absent", "", false},
		{"plain", "explain-7f3a_B", true},
		{"uuid", "0b6f5c1e-2f3d-4a5b-9c8d-7e6f5a4b3c2d", true},
		{"max length", strings.Repeat("k", 128), true},
		{"too long", strings.Repeat("k", 129), false},
		{"newline", "abc\nlevel=ERROR msg=forged", false},
		{"space", "two words", false},
		{"dot", "a.b", false},
		{"markup", "<b>id</b>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, echoed := serveWithID(t, tt.incoming)
			assert.Equal(t, seen, echoed)
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
				return
			}
			_, err := uuid.Parse(seen)
			assert.NoError(t, err, "replacement id should be a uuid, got %q", seen)
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	a, _ := serveWithID(t, "")
	b, _ := serveWithID(t, "")
	assert.NotEqual(t, a, b)
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
