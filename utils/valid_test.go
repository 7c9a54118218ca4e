package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeEmail(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"lowercases and trims", "  Desk@GymDesk.Test ", "desk@gymdesk.test", false},
		{"valid plain", "a@b.co", "a@b.co", false},
		{"missing at", "deskgymdesk.test", "", true},
		{"missing tld", "desk@gymdesk", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizeEmail(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSanitizePhone(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"empty is optional", "", "", false},
		{"strips formatting", "(961) 70-123456", "+96170123456", false},
		{"keeps leading plus", "+96170123456", "+96170123456", false},
		{"too short", "123", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizePhone(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSanitizeInputStripsMarkup(t *testing.T) {
	got := SanitizeInput("  <script>alert(1)</script>Dana\x00 ")
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "Dana")
}
