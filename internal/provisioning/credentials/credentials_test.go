package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sigrh/pkg/domain-errors"
)

func TestIssueRoundTrip(t *testing.T) {
	cred, err := NewGenerator().Issue("agent@fonction-publique.ga")
	require.NoError(t, err)
	require.NotEmpty(t, cred.Secret)
	require.NotEmpty(t, cred.SecretHash)
	assert.NotEqual(t, cred.Secret, cred.SecretHash, "hash must not leak the secret")

	// The issued hash verifies the issued secret and nothing else.
	require.NoError(t, Verify(cred.Secret, cred.SecretHash))
	err = Verify(cred.Secret+"x", cred.SecretHash)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIssueRequiresEmail(t *testing.T) {
	_, err := NewGenerator().Issue("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestSecretsAreUnique(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashRejectsEmptySecret(t *testing.T) {
	_, err := Hash("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
