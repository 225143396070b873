package apierrgen

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupStatus(t *testing.T) {
	tests := []struct {
		ident string
		cnst  string
		code  int
	}{
		{"NotFound", "StatusNotFound", http.StatusNotFound},
		{"StatusNotFound", "StatusNotFound", http.StatusNotFound},
		{"NOT_FOUND", "StatusNotFound", http.StatusNotFound},
		{"not_found", "StatusNotFound", http.StatusNotFound},
		{"OK", "StatusOK", http.StatusOK},
		{"StatusOK", "StatusOK", http.StatusOK},
		{"INTERNAL_SERVER_ERROR", "StatusInternalServerError", http.StatusInternalServerError},
		{"IM_A_TEAPOT", "StatusTeapot", http.StatusTeapot},
		{"PAYLOAD_TOO_LARGE", "StatusRequestEntityTooLarge", http.StatusRequestEntityTooLarge},
		{"URI_TOO_LONG", "StatusRequestURITooLong", http.StatusRequestURITooLong},
		{"HTTP_VERSION_NOT_SUPPORTED", "StatusHTTPVersionNotSupported", http.StatusHTTPVersionNotSupported},
		{"TooManyRequests", "StatusTooManyRequests", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			sc := LookupStatus(tt.ident)
			assert.True(t, sc.Resolved())
			assert.Equal(t, tt.ident, sc.Name)
			assert.Equal(t, tt.cnst, sc.Const)
			assert.Equal(t, tt.code, sc.Code)
		})
	}
}

func TestLookupStatus_Unknown(t *testing.T) {
	for _, ident := range []string{"NoSuchStatus", "Status", "", "StatusStatusOK"} {
		sc := LookupStatus(ident)
		assert.False(t, sc.Resolved(), ident)
		assert.Zero(t, sc.Code, ident)
	}
}

func TestStatusTable_MatchesNetHTTP(t *testing.T) {
	for _, s := range httpStatuses {
		assert.NotEmpty(t, http.StatusText(s.code), s.name)
	}
}
