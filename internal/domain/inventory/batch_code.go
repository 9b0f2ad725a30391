package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supplychain/procurement/internal/domain/shared"
)

const (
	batchCodePrefix = "H"
	batchCodeLayout = "20060102-150405"
)

// NewBatchCode formats a human batch code H-YYYYMMDD-HHMMSS-NN from the declaration time
// and a per-second sequence number starting at 1.
func NewBatchCode(at time.Time, seq int) string {
	if seq < 1 {
		seq = 1
	}
	return fmt.Sprintf("%s-%s-%02d", batchCodePrefix, at.UTC().Format(batchCodeLayout), seq)
}

// ParseBatchCode extracts the timestamp and sequence from a batch code
func ParseBatchCode(code string) (time.Time, int, error) {
	parts := strings.Split(strings.TrimSpace(code), "-")
	if len(parts) != 4 || parts[0] != batchCodePrefix {
		return time.Time{}, 0, shared.NewValidationErrorf(shared.CodeInvalidInput, "Malformed batch code '%s'", code)
	}
	at, err := time.Parse(batchCodeLayout, parts[1]+"-"+parts[2])
	if err != nil {
		return time.Time{}, 0, shared.NewValidationErrorf(shared.CodeInvalidInput, "Malformed batch code '%s'", code)
	}
	seq, err := strconv.Atoi(parts[3])
	if err != nil || seq < 1 {
		return time.Time{}, 0, shared.NewValidationErrorf(shared.CodeInvalidInput, "Malformed batch code '%s'", code)
	}
	return at, seq, nil
}

// BatchCodePrefixFor returns the code prefix shared by every batch declared in the same second
func BatchCodePrefixFor(at time.Time) string {
	return batchCodePrefix + "-" + at.UTC().Format(batchCodeLayout) + "-"
}
