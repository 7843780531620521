package rerank

import "fmt"

func errScoreMismatch(providerID string, want, got int) error {
	return fmt.Errorf("rerank provider %s returned %d scores for %d documents", providerID, got, want)
}
