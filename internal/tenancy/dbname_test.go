package tenancy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDBName(t *testing.T) {
	name, err := DeriveDBName("acme")
	require.NoError(t, err)
	assert.Equal(t, "hops_t_acme", name)
}

func TestDeriveDBName_EmptyKey(t *testing.T) {
	_, err := DeriveDBName("")
	var badName *ErrBadDatabaseName
	require.ErrorAs(t, err, &badName)
}

func TestDeriveDBName_LengthBudget(t *testing.T) {
	// Prefix is 7 bytes, so 31 key bytes fit and 32 do not.
	longest := strings.Repeat("a", MaxDBNameLen-len(DBNamePrefix))

	name, err := DeriveDBName(longest)
	require.NoError(t, err)
	assert.Len(t, name, MaxDBNameLen)

	_, err = DeriveDBName(longest + "a")
	var badName *ErrBadDatabaseName
	require.ErrorAs(t, err, &badName)
	assert.Contains(t, badName.Cause, "byte limit")
}

func TestDeriveDBName_RejectsInvalidCharacters(t *testing.T) {
	for _, key := range []string{"Acme", "acme.prod", "acme tenant", "acme$"} {
		_, err := DeriveDBName(key)
		assert.Error(t, err, "key %q should be rejected", key)
	}
}

func TestResolveDBName_StoredNameWins(t *testing.T) {
	name, err := ResolveDBName("acme", "hops_t_acme-legacy")
	require.NoError(t, err)
	assert.Equal(t, "hops_t_acme-legacy", name)
}

func TestResolveDBName_StoredNameMustMatchPrefix(t *testing.T) {
	_, err := ResolveDBName("acme", "somedb")
	var badName *ErrBadDatabaseName
	require.ErrorAs(t, err, &badName)
	assert.Contains(t, badName.Cause, "prefix")
}

func TestResolveDBName_DerivesWhenStoredEmpty(t *testing.T) {
	name, err := ResolveDBName("mercy-west", "")
	require.NoError(t, err)
	assert.Equal(t, "hops_t_mercy-west", name)
}
