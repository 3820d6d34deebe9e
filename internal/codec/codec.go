// Package codec converts the employee roster to and from the transport-safe text
// stored in the document body: a pretty-printed JSON array encoded as base64.
package codec

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Houeta/ems-roster/internal/models"
)

// ErrMalformed is returned by Decode when the text is not a valid encoded roster.
var ErrMalformed = errors.New("malformed roster document")

const indent = "  "

// Encode marshals records into indented JSON and base64-encodes the result.
// A nil slice is encoded as an empty array.
func Encode(records []models.Employee) (string, error) {
	raw, err := Marshal(records)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// Marshal returns the indented JSON form of records, as it is stored in the document.
func Marshal(records []models.Employee) ([]byte, error) {
	if records == nil {
		records = []models.Employee{}
	}

	raw, err := json.MarshalIndent(records, "", indent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roster: %w", err)
	}

	return raw, nil
}

// Decode is the inverse of Encode. Line breaks inside the base64 text are ignored,
// content APIs wrap it every 60 characters.
//
// On malformed input Decode returns an empty, non-nil list together with an error
// wrapping ErrMalformed, so the caller decides whether to degrade or fail.
func Decode(text string) ([]models.Employee, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, text)

	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return []models.Employee{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return Unmarshal(raw)
}

// Unmarshal parses the JSON form of the roster. Like Decode it returns an empty list
// with an error wrapping ErrMalformed when raw is not a JSON array of employees.
func Unmarshal(raw []byte) ([]models.Employee, error) {
	var records []models.Employee
	if err := json.Unmarshal(raw, &records); err != nil {
		return []models.Employee{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if records == nil {
		// a literal `null` document
		return []models.Employee{}, fmt.Errorf("%w: document is not an array", ErrMalformed)
	}

	return records, nil
}

// Revision returns the content hash used as revision token by stores that mint their own.
func Revision(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
