package domain

import (
	"strconv"
	"strings"

	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

// PropertyID and TransactionID are arena-style keys: allocated from 1 upward,
// never reused. Zero means "absent".
type (
	PropertyID    uint64
	TransactionID uint64
)

func (id PropertyID) IsZero() bool    { return id == 0 }
func (id TransactionID) IsZero() bool { return id == 0 }

func (id PropertyID) String() string    { return strconv.FormatUint(uint64(id), 10) }
func (id TransactionID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParsePropertyID parses a decimal property id. Zero is rejected.
func ParsePropertyID(s string) (PropertyID, error) {
	v, err := parseID(s, "property id")
	return PropertyID(v), err
}

// ParseTransactionID parses a decimal transaction id. Zero is rejected.
func ParseTransactionID(s string) (TransactionID, error) {
	v, err := parseID(s, "transaction id")
	return TransactionID(v), err
}

func parseID(s, what string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, what+" must be a positive integer")
	}
	if v == 0 {
		return 0, dErrors.New(dErrors.CodeNotFound, what+" 0 does not exist")
	}
	return v, nil
}
