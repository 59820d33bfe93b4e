package assign

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/secretsanta/internal/errs"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%02d", i)
	}
	return ids
}

func TestAssignProducesDerangements(t *testing.T) {
	for n := 2; n <= 40; n++ {
		ids := makeIDs(n)
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			for trial := 0; trial < 50; trial++ {
				mapping, err := Assign(ids)
				require.NoError(t, err)
				require.NoError(t, Verify(ids, mapping))
			}
		})
	}
}

func TestDerangeTwoIsAlwaysSwap(t *testing.T) {
	ids := []string{"ana", "bruno"}
	for trial := 0; trial < 100; trial++ {
		mapping, err := Derange(ids, rand.NewPCG(uint64(trial), 7))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"ana": "bruno", "bruno": "ana"}, mapping)
	}
}

func TestDerangeRejectsTooFew(t *testing.T) {
	for _, ids := range [][]string{nil, {}, {"solo"}} {
		_, err := Assign(ids)
		assert.ErrorIs(t, err, errs.ErrInsufficientParticipants)
	}
}

func TestDerangeRejectsDuplicateIDs(t *testing.T) {
	_, err := Assign([]string{"a", "b", "a"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDerangeIsUniform(t *testing.T) {
	// Four elements have exactly nine derangements.
	ids := makeIDs(4)
	src := rand.NewPCG(42, 1024)

	const trials = 9000
	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		mapping, err := Derange(ids, src)
		require.NoError(t, err)

		var key strings.Builder
		for _, id := range ids {
			key.WriteString(mapping[id])
		}
		counts[key.String()]++
	}

	require.Len(t, counts, 9)
	for perm, c := range counts {
		assert.InDelta(t, trials/9, c, 200, "derangement %s drawn %d times", perm, c)
	}
}

func TestDerangeIsDeterministicForSeededSource(t *testing.T) {
	ids := makeIDs(12)

	a, err := Derange(ids, rand.NewPCG(1, 2))
	require.NoError(t, err)
	b, err := Derange(ids, rand.NewPCG(1, 2))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestVerify(t *testing.T) {
	ids := []string{"a", "b", "c"}

	tests := []struct {
		name    string
		mapping map[string]string
		wantErr bool
	}{
		{"three-cycle", map[string]string{"a": "b", "b": "c", "c": "a"}, false},
		{"fixed point", map[string]string{"a": "a", "b": "c", "c": "b"}, true},
		{"not injective", map[string]string{"a": "b", "b": "a", "c": "a"}, true},
		{"missing id", map[string]string{"a": "b", "b": "a"}, true},
		{"foreign id", map[string]string{"a": "b", "b": "c", "d": "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(ids, tt.mapping)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
