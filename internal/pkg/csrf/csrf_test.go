package csrf

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// Пакет unit-тестов для internal/pkg/csrf.
//
// Покрытие:
//   - NewToken: длина/кодировка/уникальность;
//   - Valid: истина только на точном совпадении пары cookie+header.

func TestNewToken_Shape(t *testing.T) {
	t.Parallel()

	tok, err := NewToken()
	require.NoError(t, err)
	require.Len(t, tok, 2*tokenLen)

	_, err = hex.DecodeString(tok)
	require.NoError(t, err, "токен должен быть валидным hex")

	other, err := NewToken()
	require.NoError(t, err)
	require.NotEqual(t, tok, other)
}

// TestValid_Table — все ветки double-submit проверки.
func TestValid_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cookie string
		header string
		want   bool
	}{
		{name: "exact_match", cookie: "deadbeefcafe", header: "deadbeefcafe", want: true},
		{name: "both_empty", cookie: "", header: "", want: false},
		{name: "missing_cookie", cookie: "", header: "deadbeefcafe", want: false},
		{name: "missing_header", cookie: "deadbeefcafe", header: "", want: false},
		{name: "mismatch_same_len", cookie: "deadbeefcafe", header: "deadbeefcaff", want: false},
		{name: "mismatch_diff_len", cookie: "deadbeef", header: "deadbeefcafe", want: false},
		{name: "case_sensitive", cookie: "DEADBEEFCAFE", header: "deadbeefcafe", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, Valid(tt.cookie, tt.header))
		})
	}
}
