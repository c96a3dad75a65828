// Package fairness implements the commit-reveal seed scheme every round is
// drawn from.
//
// A round's scalar is derived as
//
//	digest = SHA-256(utf8(serverSeed + ":" + clientSeed + ":" + decimal(nonce)))
//	scalar = uint32_be(digest[0:4]) / 2^32
//
// which lies in [0, 1) and is identical on every platform. Anyone holding the
// revealed seeds can recompute it.
package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

const (
	// ServerSeedLength is the length of generated server seeds.
	ServerSeedLength = 64
	// ClientSeedLength is the length of generated client seeds.
	ClientSeedLength = 16
	// Epsilon is the tolerance Verify allows between a derived and a claimed scalar.
	Epsilon = 1e-9

	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// 2^32, the exclusive upper bound of the 4-byte prefix.
	scalarDivisor = float64(1 << 32)
)

// SeedSource produces seed material. The orchestrator takes one so tests can
// pin seeds.
type SeedSource interface {
	ServerSeed() (string, error)
	ClientSeed() (string, error)
}

// CryptoSource draws seeds from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) ServerSeed() (string, error) { return GenerateServerSeed() }
func (CryptoSource) ClientSeed() (string, error) { return GenerateClientSeed() }

// GenerateServerSeed returns a 64-character alphanumeric secret.
func GenerateServerSeed() (string, error) {
	return randomString(ServerSeedLength)
}

// GenerateClientSeed returns a 16-character alphanumeric seed for players who
// did not supply their own.
func GenerateClientSeed() (string, error) {
	return randomString(ClientSeedLength)
}

// HashServerSeed returns the hex SHA-256 commitment of a server seed.
func HashServerSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// DeriveScalar maps a seed triple to a value in [0, 1).
func DeriveScalar(serverSeed, clientSeed string, nonce uint64) float64 {
	msg := serverSeed + ":" + clientSeed + ":" + strconv.FormatUint(nonce, 10)
	sum := sha256.Sum256([]byte(msg))
	prefix := binary.BigEndian.Uint32(sum[:4])
	return float64(prefix) / scalarDivisor
}

// Verify recomputes the scalar for the triple and compares it with claimed.
func Verify(serverSeed, clientSeed string, nonce uint64, claimed float64) bool {
	derived := DeriveScalar(serverSeed, clientSeed, nonce)
	diff := derived - claimed
	if diff < 0 {
		diff = -diff
	}
	return diff < Epsilon
}

// Stream hands out successive scalars from one seed pair, advancing the nonce
// by one per draw. Multi-step games use it to draw sub-results.
type Stream struct {
	serverSeed string
	clientSeed string
	start      uint64
	next       uint64
}

// NewStream starts a stream at nonce.
func NewStream(serverSeed, clientSeed string, nonce uint64) *Stream {
	return &Stream{serverSeed: serverSeed, clientSeed: clientSeed, start: nonce, next: nonce}
}

// Next returns the scalar for the current nonce and advances.
func (s *Stream) Next() float64 {
	v := DeriveScalar(s.serverSeed, s.clientSeed, s.next)
	s.next++
	return v
}

// Nonce returns the nonce the next draw will use.
func (s *Stream) Nonce() uint64 { return s.next }

// Draws returns how many scalars have been taken.
func (s *Stream) Draws() uint64 { return s.next - s.start }

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate seed: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
