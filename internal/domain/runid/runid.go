// Package runid generates the short, player-facing run identifiers embedded
// in result URLs. Ids are random and independent of run content; collisions
// are handled by the unique index on the run store.
package runid

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultLength matches the historical five-character public run ids.
const DefaultLength = 5

// alphabet drops look-alike characters (0/O, 1/l/I) so ids survive being
// read aloud or retyped from screenshots.
const alphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// New returns a random readable token of the given length.
func New(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	id := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating run id: %w", err)
		}
		id[i] = alphabet[n.Int64()]
	}
	return string(id), nil
}
