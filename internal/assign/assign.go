// Package assign computes gift-giving assignments.
//
// An assignment is a derangement of the participant ids: every participant
// gives to exactly one other participant and nobody gives to themselves.
package assign

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/mmynk/secretsanta/internal/errs"
)

// cryptoSource feeds math/rand/v2 from crypto/rand. It is stateless, so a
// Rand built on it is safe for concurrent use.
type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var b [8]byte
	// crypto/rand.Read does not fail on supported platforms.
	_, _ = crand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

var secure = rand.New(cryptoSource{})

// Assign returns a uniformly random derangement of ids drawn from crypto/rand.
func Assign(ids []string) (map[string]string, error) {
	return Derange(ids, nil)
}

// Derange maps every id to a distinct other id.
// A nil src uses crypto/rand; tests pass a seeded source.
//
// Permutations are drawn with Fisher-Yates and rejected while they contain a
// fixed point, which keeps the result uniform over all derangements. About
// 1/e of permutations are derangements, so the expected number of shuffles
// is close to e for every n.
func Derange(ids []string, src rand.Source) (map[string]string, error) {
	n := len(ids)
	if n < 2 {
		return nil, fmt.Errorf("derange %d ids: %w", n, errs.ErrInsufficientParticipants)
	}

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, errs.Invalid("participant_ids", fmt.Sprintf("duplicate id %q", id))
		}
		seen[id] = struct{}{}
	}

	// Only one derangement exists for two elements.
	if n == 2 {
		return map[string]string{ids[0]: ids[1], ids[1]: ids[0]}, nil
	}

	rnd := secure
	if src != nil {
		rnd = rand.New(src)
	}

	perm := make([]int, n)
	for {
		for i := range perm {
			perm[i] = i
		}
		for i := n - 1; i > 0; i-- {
			j := rnd.IntN(i + 1)
			perm[i], perm[j] = perm[j], perm[i]
		}
		if !hasFixedPoint(perm) {
			break
		}
	}

	mapping := make(map[string]string, n)
	for i, j := range perm {
		mapping[ids[i]] = ids[j]
	}
	return mapping, nil
}

func hasFixedPoint(perm []int) bool {
	for i, v := range perm {
		if i == v {
			return true
		}
	}
	return false
}

// Verify checks that mapping is a derangement of ids.
func Verify(ids []string, mapping map[string]string) error {
	if len(mapping) != len(ids) {
		return fmt.Errorf("mapping covers %d ids, want %d", len(mapping), len(ids))
	}

	targeted := make(map[string]bool, len(ids))
	for _, id := range ids {
		target, ok := mapping[id]
		if !ok {
			return fmt.Errorf("id %q has no target", id)
		}
		if target == id {
			return fmt.Errorf("id %q is assigned to itself", id)
		}
		if targeted[target] {
			return fmt.Errorf("id %q is targeted more than once", target)
		}
		targeted[target] = true
	}

	for _, id := range ids {
		if !targeted[id] {
			return fmt.Errorf("id %q is never targeted", id)
		}
	}
	return nil
}
