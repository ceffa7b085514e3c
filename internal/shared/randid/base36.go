// Package randid produces short random identifier fragments.
package randid

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var radix = big.NewInt(int64(len(alphabet)))

// Base36 returns n random lowercase base36 characters.
func Base36(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, radix)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic("randid: " + err.Error())
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String()
}

// UpperBase36 returns n random uppercase base36 characters.
func UpperBase36(n int) string {
	return strings.ToUpper(Base36(n))
}
