package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Prime", "Steady", "Rapid", "Solid", "Keen",
	"Lucky", "Noble", "Vivid", "Grand", "Sharp",
	"Quiet", "Early", "Magna", "Astro", "Hyper",
}

var nouns = []string{
	"Trader", "Holder", "Whale", "Miner", "Scout",
	"Pilot", "Drift", "Comet", "Vault", "Summit",
	"Harbor", "Signal", "Ledger", "Orbit", "Spark",
}

// GenerateNickname creates a random display name in the format
// "Adjective_Noun_XXXX" where XXXX is a random 4-digit number.
func GenerateNickname() (string, error) {
	adjIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	if err != nil {
		return "", fmt.Errorf("failed to pick adjective: %w", err)
	}

	nounIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	if err != nil {
		return "", fmt.Errorf("failed to pick noun: %w", err)
	}

	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to pick suffix: %w", err)
	}

	return fmt.Sprintf("%s_%s_%04d", adjectives[adjIdx.Int64()], nouns[nounIdx.Int64()], suffix.Int64()), nil
}
