package splitter

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/split-session-service/interfaces"
)

// ShamirProtocol tags shares produced by ShamirSplitter: Shamir's Secret
// Sharing over GF(2^8), each share hex-encoded with its x-coordinate as the
// trailing byte.
const ShamirProtocol = "shamir1"

// maxShares is the largest number of shares GF(2^8) allows.
const maxShares = 255

// ShamirSplitter splits secrets locally with Shamir's Secret Sharing.
type ShamirSplitter struct{}

// NewShamirSplitter creates a local Shamir splitter.
func NewShamirSplitter() *ShamirSplitter {
	return &ShamirSplitter{}
}

// Protocol returns ShamirProtocol.
func (ShamirSplitter) Protocol() string {
	return ShamirProtocol
}

// MaxShares returns the largest share count GF(2^8) allows.
func (ShamirSplitter) MaxShares() int {
	return maxShares
}

// Split returns `shares` hex-encoded shares, any `quorum` of which combine
// to the secret. A quorum of one yields shares that each carry the secret.
func (ShamirSplitter) Split(ctx context.Context, secret []byte, shares, quorum int) ([]interfaces.Share, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, errors.New("cannot split an empty secret")
	}
	if quorum < 1 || shares < quorum {
		return nil, fmt.Errorf("invalid policy: quorum=%d shares=%d", quorum, shares)
	}
	if shares > maxShares {
		return nil, fmt.Errorf("at most %d shares are supported, got %d", maxShares, shares)
	}

	var raw [][]byte
	if quorum == 1 {
		raw = degreeZeroShares(secret, shares)
	} else {
		var err error
		raw, err = shamir.Split(secret, shares, quorum)
		if err != nil {
			return nil, fmt.Errorf("failed to split secret: %w", err)
		}
	}

	result := make([]interfaces.Share, 0, len(raw))
	for _, share := range raw {
		result = append(result, interfaces.Share(hex.EncodeToString(share)))
	}
	return result, nil
}

// degreeZeroShares builds shares of the constant polynomial f(x) = secret:
// every share holds the secret, tagged with a distinct x-coordinate so that
// shamir.Combine still accepts any two of them.
func degreeZeroShares(secret []byte, shares int) [][]byte {
	raw := make([][]byte, 0, shares)
	for i := 0; i < shares; i++ {
		share := make([]byte, len(secret)+1)
		copy(share, secret)
		share[len(secret)] = byte(i + 1)
		raw = append(raw, share)
	}
	return raw
}

// Combine reconstructs a secret from shares produced by ShamirSplitter.
func Combine(shares []interfaces.Share) ([]byte, error) {
	if len(shares) == 0 {
		return nil, errors.New("no shares to combine")
	}

	raw := make([][]byte, 0, len(shares))
	for i, share := range shares {
		decoded, err := hex.DecodeString(string(share))
		if err != nil {
			return nil, fmt.Errorf("share %d is not hex: %w", i, err)
		}
		if len(decoded) < 2 {
			return nil, fmt.Errorf("share %d is too short", i)
		}
		raw = append(raw, decoded)
	}

	if len(raw) == 1 {
		// only valid for a quorum of one
		return raw[0][:len(raw[0])-1], nil
	}

	secret, err := shamir.Combine(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to combine shares: %w", err)
	}
	return secret, nil
}
