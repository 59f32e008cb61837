package editengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashContent(t *testing.T) {
	h1, err := HashContent(HashXXHash64, "hello")
	require.NoError(t, err)
	h2, err := HashContent(HashXXHash64, "hello")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := HashContent(HashXXHash64, "hello!")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	sha, err := HashContent(HashSHA256, "hello")
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sha)

	_, err = HashContent("md5", "hello")
	assert.Error(t, err)
}

func TestContentHash_UsesDefaultAlgorithm(t *testing.T) {
	expected, err := HashContent(DefaultHashAlgorithm, "some content")
	require.NoError(t, err)
	assert.Equal(t, expected, ContentHash("some content"))
}

func TestVerifyExpectedHash(t *testing.T) {
	content := "const port = 8080;"

	// Nil precondition always passes.
	assert.Nil(t, verifyExpectedHash(nil, content))

	// Matching hash passes.
	good := &ExpectedHash{Algorithm: HashXXHash64, Value: ContentHash(content)}
	assert.Nil(t, verifyExpectedHash(good, content))

	// Empty algorithm falls back to the default.
	defaulted := &ExpectedHash{Value: ContentHash(content)}
	assert.Nil(t, verifyExpectedHash(defaulted, content))

	// Mismatch reports HASH_MISMATCH with both digests.
	bad := &ExpectedHash{Algorithm: HashXXHash64, Value: "deadbeef"}
	fail := verifyExpectedHash(bad, content)
	require.NotNil(t, fail)
	assert.Equal(t, CodeHashMismatch, fail.Code)
	assert.Contains(t, fail.Message, "deadbeef")

	// Unknown algorithm is an invalid target, not a mismatch.
	unknown := &ExpectedHash{Algorithm: "crc32", Value: "0"}
	fail = verifyExpectedHash(unknown, content)
	require.NotNil(t, fail)
	assert.Equal(t, CodeInvalidTarget, fail.Code)
}
