// Package validation generates and checks single-use proof-of-delivery codes.
package validation

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"service-delivery/internal/apperr"
)

// Alphabet is the character set of the random part of a code.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the length of the random part.
const DefaultLength = 6

// Generator produces codes of the form PREFIX-XXXXXX.
type Generator struct {
	prefix string
	length int
	rand   io.Reader
}

// NewGenerator returns a Generator; a non-positive length falls back to DefaultLength.
func NewGenerator(prefix string, length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{
		prefix: strings.ToUpper(strings.TrimSpace(prefix)),
		length: length,
		rand:   rand.Reader,
	}
}

// Generate returns a fresh code.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("generate validation code: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	if g.prefix == "" {
		return string(buf), nil
	}
	return g.prefix + "-" + string(buf), nil
}

// Payload is the value encoded in the buyer's QR code.
type Payload struct {
	ValidationCode string `json:"validationCode"`
	OrderID        *int64 `json:"orderId,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// NewPayload builds the QR payload for a delivery.
func NewPayload(code string, orderID int64, now time.Time) Payload {
	id := orderID
	return Payload{
		ValidationCode: code,
		OrderID:        &id,
		Timestamp:      now.UTC().Format(time.RFC3339),
	}
}

// Encode returns the JSON text to put in the QR image.
func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

// ScannedAt parses Timestamp; the zero time is returned when it is absent or malformed.
func (p Payload) ScannedAt() time.Time {
	t, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParsePayload decodes the text produced by the QR decoder. Text that is not a
// JSON object is taken as a bare code.
func ParsePayload(raw []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Payload{}, fmt.Errorf("%w: empty payload", apperr.ErrInvalid)
	}

	var p Payload
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return Payload{}, fmt.Errorf("%w: malformed payload: %v", apperr.ErrInvalid, err)
		}
	} else {
		p.ValidationCode = string(trimmed)
	}

	if strings.TrimSpace(p.ValidationCode) == "" {
		return Payload{}, fmt.Errorf("%w: missing validation code", apperr.ErrInvalid)
	}
	return p, nil
}

// Match checks a scanned payload against the stored code of a delivery.
// The order id, when present, is checked first so a valid code shown for another
// order is still rejected. Code comparison is exact and case-sensitive.
func Match(storedCode string, orderID int64, p Payload) error {
	if p.OrderID != nil && *p.OrderID != orderID {
		return apperr.ErrOrderMismatch
	}
	if storedCode == "" || p.ValidationCode != storedCode {
		return apperr.ErrCodeMismatch
	}
	return nil
}
