package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii", in: "alice@example.com", want: "a***@example.com"},
		{name: "short_local", in: "a@ex.com", want: "***@ex.com"},
		{name: "empty_local", in: "@ex.com", want: "***@ex.com"},
		{name: "no_at", in: "broken", want: "***"},
		{name: "two_at", in: "a@b@c", want: "***"},
		{name: "empty", in: "", want: "***"},
		{name: "unicode", in: "юзер@пример.рф", want: "ю***@пример.рф"},
		{name: "keeps_domain_case", in: "bob+tag@EXAMPLE.org", want: "b***@EXAMPLE.org"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Email(tt.in))
		})
	}
}

func TestToken_Fingerprint(t *testing.T) {
	t.Parallel()

	const tok = "eyJhbGciOiJIUzI1NiJ9.payload.signature"

	fp := Token(tok)
	require.True(t, strings.HasPrefix(fp, "tok:"))
	require.Len(t, fp, len("tok:")+8)
	require.NotContains(t, fp, "payload")
	require.Equal(t, fp, Token(tok), "отпечаток детерминирован")
	require.NotEqual(t, fp, Token(tok+"x"))
	require.Equal(t, "[EMPTY_TOKEN]", Token(""))
}

func TestPassword_Literal(t *testing.T) {
	t.Parallel()
	require.Equal(t, "[REDACTED_PASSWORD]", Password())
}
