// Package ids generates the opaque 21-character resource identifiers used
// for Actors, Runs, Datasets, KeyValueStores, RequestQueues, and Requests,
// encoded into a fixed-width base62 alphabet instead of dashed hex.
package ids

import (
	"math/big"

	"github.com/google/uuid"
)

const (
	// Length is the fixed width of every generated id.
	Length = 21

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultAlias is the reserved per-principal name that resolves to
	// each principal's own default Dataset/KeyValueStore/RequestQueue,
	// created lazily on first use.
	DefaultAlias = "default"
)

// New returns a fresh random 21-character opaque id.
func New() string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])

	base := big.NewInt(int64(len(alphabet)))
	out := make([]byte, Length)
	mod := new(big.Int)
	for i := Length - 1; i >= 0; i-- {
		n.DivMod(n, base, mod)
		out[i] = alphabet[mod.Int64()]
	}
	return string(out)
}

// IsDefaultAlias reports whether name is the reserved "default" alias
// rather than an explicit id/name a caller chose.
func IsDefaultAlias(name string) bool {
	return name == "" || name == DefaultAlias
}
