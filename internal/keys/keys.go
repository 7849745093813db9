// Package keys builds the DynamoDB key layout used by the record backend.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	// RecordPrefix prefixes the sort key of every stored record.
	RecordPrefix = "rec#"

	// CounterSortKey is the sort key of the per-collection sequence counter.
	CounterSortKey = "counter"

	// ClaimSortKey is the sort key of an id claim.
	ClaimSortKey = "CLAIM"
)

// RecordSortKey returns the sort key for the record appended at position seq.
// Zero padding keeps lexical order equal to insertion order.
func RecordSortKey(seq int64) string {
	return fmt.Sprintf("%s%020d", RecordPrefix, seq)
}

// ParseRecordSortKey extracts the sequence number from a record sort key.
func ParseRecordSortKey(sk string) (int64, error) {
	if !strings.HasPrefix(sk, RecordPrefix) {
		return 0, fmt.Errorf("not a record sort key: %q", sk)
	}
	return strconv.ParseInt(strings.TrimPrefix(sk, RecordPrefix), 10, 64)
}

// ClaimPK computes a hash-distributed partition key reserving id within a
// collection. Each claim lands on its own partition.
func ClaimPK(collection, id string) string {
	h := sha256.Sum256([]byte(collection + "#" + id))
	return "claim#" + hex.EncodeToString(h[:16])
}
