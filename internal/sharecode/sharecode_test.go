package sharecode

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropcode/dropcode/internal/domain"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func neverTaken(string) (bool, error) { return false, nil }

func TestNewProducesValidCode(t *testing.T) {
	gen := NewGenerator(neverTaken)

	code, err := gen.New()
	require.NoError(t, err)

	assert.Len(t, code, Length)
	assert.Regexp(t, codePattern, code)
	assert.True(t, Valid(code))
}

func TestNewExcludesAmbiguousCharacters(t *testing.T) {
	gen := NewGenerator(neverTaken)

	for i := 0; i < 1000; i++ {
		code, err := gen.New()
		require.NoError(t, err)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
	}
}

func TestNoCollisionAcrossActiveCodes(t *testing.T) {
	issued := make(map[string]bool)
	gen := NewGenerator(func(code string) (bool, error) {
		return issued[code], nil
	})

	for i := 0; i < 10000; i++ {
		code, err := gen.New()
		require.NoError(t, err)
		require.False(t, issued[code], "code %s issued twice", code)
		issued[code] = true
	}

	assert.Len(t, issued, 10000)
}

func TestRetriesOnCollision(t *testing.T) {
	var calls int
	gen := NewGenerator(func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})

	code, err := gen.New()
	require.NoError(t, err)
	assert.True(t, Valid(code))
	assert.Equal(t, 3, calls)
}

func TestGenerationExhausted(t *testing.T) {
	var calls int
	gen := NewGenerator(func(string) (bool, error) {
		calls++
		return true, nil
	})

	_, err := gen.New()
	assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
	assert.Equal(t, 5, calls)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ABC234", Normalize("abc234"))
	assert.Equal(t, "ABC234", Normalize("  Abc234 "))
	assert.Equal(t, "ABC234", Normalize("ABC234"))
}

func TestValid(t *testing.T) {
	testCases := []struct {
		code  string
		valid bool
	}{
		{"ABC234", true},
		{"ZZZZZZ", true},
		{"abc234", false}, // lowercase is only accepted after Normalize
		{"ABC23", false},
		{"ABC2345", false},
		{"ABC2O4", false}, // ambiguous O never generated
		{"ABC214", false}, // ambiguous 1 never generated
		{"", false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.valid, Valid(tc.code), "code %q", tc.code)
	}
}
