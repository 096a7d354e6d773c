// Package digest maps the configured hash algorithm onto 256-bit digest
// implementations.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/daddykev/ddex-suite/config"
)

// Size is the digest length in bytes for every supported algorithm.
const Size = 32

// New returns a fresh hash for alg.
func New(alg config.HashAlgorithm) hash.Hash {
	switch alg {
	case config.HashSHA512_256:
		return sha512.New512_256()
	case config.HashBLAKE2b256:
		h, err := blake2b.New256(nil)
		if err != nil {
			// Only a key longer than 64 bytes can fail.
			panic(err)
		}
		return h
	case config.HashSHA3_256:
		return sha3.New256()
	default:
		return sha256.New()
	}
}

// Sum hashes data with alg.
func Sum(alg config.HashAlgorithm, data []byte) [Size]byte {
	switch alg {
	case config.HashSHA512_256:
		return sha512.Sum512_256(data)
	case config.HashBLAKE2b256:
		return blake2b.Sum256(data)
	case config.HashSHA3_256:
		return sha3.Sum256(data)
	default:
		return sha256.Sum256(data)
	}
}

// Secondary returns an algorithm different from alg for collision
// cross-checks.
func Secondary(alg config.HashAlgorithm) config.HashAlgorithm {
	if alg == config.HashBLAKE2b256 {
		return config.HashSHA256
	}
	return config.HashBLAKE2b256
}

// Digest is a 256-bit digest tagged with its algorithm.
type Digest struct {
	Algorithm config.HashAlgorithm
	Sum       [Size]byte
}

// Of hashes data.
func Of(alg config.HashAlgorithm, data []byte) Digest {
	return Digest{Algorithm: alg, Sum: Sum(alg, data)}
}

// Hex returns the lowercase hex digest.
func (d Digest) Hex() string {
	return hex.EncodeToString(d.Sum[:])
}

// String returns algorithm:hex.
func (d Digest) String() string {
	return d.Algorithm.String() + ":" + d.Hex()
}

// MarshalText encodes the digest as String.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Equal reports whether both digests use the same algorithm and bytes.
func (d Digest) Equal(o Digest) bool {
	return d.Algorithm == o.Algorithm && d.Sum == o.Sum
}
