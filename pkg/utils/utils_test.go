package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferenceFormat(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 30, 15, 123_000_000, time.UTC)
	ref := generateReferenceAt("bk", now)

	assert.Regexp(t, regexp.MustCompile(`^BK20240501103015123-[A-Z2-9]{4}$`), ref)
}

func TestGenerateReferenceDiffers(t *testing.T) {
	a := GenerateReference(PrefixInvoice)
	b := GenerateReference(PrefixInvoice)

	assert.NotEqual(t, a, b)
	assert.True(t, len(a) > len(PrefixInvoice))
	assert.Equal(t, PrefixInvoice, a[:3])
}

func TestRandomDigits(t *testing.T) {
	code, err := RandomDigits(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cretpass")
	require.NoError(t, err)

	assert.True(t, IsHashed(hash))
	assert.False(t, IsHashed("s3cretpass"))
	assert.True(t, CheckPasswordHash("s3cretpass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestParsePagination(t *testing.T) {
	page, size := ParsePagination("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size = ParsePagination("3", "500")
	assert.Equal(t, 3, page)
	assert.Equal(t, DefaultPageSize, size)

	assert.Equal(t, int64(3), TotalPages(21, 10))
	assert.Equal(t, int64(0), TotalPages(5, 0))
}
