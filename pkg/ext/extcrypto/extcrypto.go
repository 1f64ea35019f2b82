// Package extcrypto provides hashing and identifier functions.
// All functions use only the Go standard library.
//
// Security note: MD5 and SHA-1 are provided for compatibility/fingerprinting only
// and should NOT be used for cryptographic security purposes.
package extcrypto

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // intentional: provided for non-security fingerprinting
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // intentional
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/sandrolain/goformula/pkg/ext/extutil"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all cryptographic function definitions.
func All() []functions.FunctionDef {
	return []functions.FunctionDef{
		UUID(),
		Hash(),
		HMAC(),
	}
}

// UUID returns the definition for UUID(), a random version 4 UUID.
func UUID() functions.FunctionDef {
	return extutil.Def("UUID", 0, 0, func(_ []types.Value, _ *types.Context) types.Value {
		var b [16]byte
		if _, err := rand.Read(b[:]); err != nil {
			return types.Error(types.ErrorValue)
		}
		// Set version 4
		b[6] = (b[6] & 0x0f) | 0x40
		// Set variant bits
		b[8] = (b[8] & 0x3f) | 0x80
		return types.Text(fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
			b[0:4], b[4:6], b[6:8], b[8:10], b[10:16]))
	})
}

// Hash returns the definition for HASH(text, [algorithm]), the lowercase
// hex digest of text. Algorithms: "md5", "sha1", "sha256" (default),
// "sha384", "sha512". An unknown algorithm is #VALUE!.
func Hash() functions.FunctionDef {
	return extutil.Def("HASH", 1, 2, func(args []types.Value, _ *types.Context) types.Value {
		s, errv, ok := extutil.Texts(args)
		if !ok {
			return errv
		}
		algorithm := "sha256"
		if len(s) > 1 {
			algorithm = s[1]
		}
		newHash, ok := hashers[strings.ToLower(algorithm)]
		if !ok {
			return types.Error(types.ErrorValue)
		}
		h := newHash()
		h.Write([]byte(s[0]))
		return types.Text(hex.EncodeToString(h.Sum(nil)))
	})
}

// HMAC returns the definition for HMAC(text, key, [algorithm]), the
// lowercase hex HMAC of text. Algorithms are those of HASH.
func HMAC() functions.FunctionDef {
	return extutil.Def("HMAC", 2, 3, func(args []types.Value, _ *types.Context) types.Value {
		s, errv, ok := extutil.Texts(args)
		if !ok {
			return errv
		}
		algorithm := "sha256"
		if len(s) > 2 {
			algorithm = s[2]
		}
		newHash, ok := hashers[strings.ToLower(algorithm)]
		if !ok {
			return types.Error(types.ErrorValue)
		}
		mac := hmac.New(newHash, []byte(s[1]))
		mac.Write([]byte(s[0]))
		return types.Text(hex.EncodeToString(mac.Sum(nil)))
	})
}

var hashers = map[string]func() hash.Hash{
	"md5":    md5.New, //nolint:gosec
	"sha1":   sha1.New, //nolint:gosec
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}
