package text

import (
	"errors"
	"fmt"
)

var TooManyTokensError = errors.New("too many tokens")

type DiffResult struct {
	Diff       []byte
	DiffAmount float64
}

type Differ interface {
	Calculate(baseline []byte, target []byte) (*DiffResult, error)
}

func checkTokens(maxTokens int, baseline int, target int) error {
	if maxTokens > 0 && (baseline > maxTokens || target > maxTokens) {
		return fmt.Errorf("%d and %d tokens, limit is %d: %w", baseline, target, maxTokens, TooManyTokensError)
	}
	return nil
}
