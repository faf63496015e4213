package domain

import (
	"crypto/ed25519"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

// AddressLength is the byte length of a caller identity.
const AddressLength = 20

// Address is the unforgeable identity of a caller: the last 20 bytes of the
// Keccak-256 digest of the caller's ed25519 public key. The zero Address is
// the null identity and never owns or buys anything.
type Address [AddressLength]byte

// AddressFromPublicKey derives the identity bound to an ed25519 public key.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)

	var a Address
	copy(a[:], sum[len(sum)-AddressLength:])
	return a
}

// ParseAddress accepts a 0x-prefixed (or bare) 40 character hex string.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != AddressLength*2 {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be 20 hex-encoded bytes")
	}
	var a Address
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address is not valid hex")
	}
	return a, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the address as its hex string.
func (a Address) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case nil:
		*a = Address{}
		return nil
	default:
		return fmt.Errorf("scan address: unsupported type %T", src)
	}
}
