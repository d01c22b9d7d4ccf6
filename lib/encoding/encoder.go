// Package encoding produces deterministic binary forms of widget
// configuration values.
//
// The widget never sees these bytes. They exist so that diagnostics, the CLI
// and the dev server can refer to "the same configuration" across processes
// without printing identity tokens or secrets verbatim.
package encoding

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors returned by Pack and Unpack.
var (
	ErrInvalidFormat = errors.New("encoding: invalid format")
	ErrUnsupported   = errors.New("encoding: value not serializable")
)

// Valuer is implemented by types that can flatten themselves into a
// serializable map. webchat.Config implements it.
type Valuer interface {
	Values() map[string]any
}

// Pack serializes m as msgpack with map keys sorted, so equal maps always
// produce equal bytes.
func Pack(m map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(m); err != nil {
		return nil, errors.Join(ErrUnsupported, err)
	}
	return buf.Bytes(), nil
}

// Unpack reverses Pack. Integer widths are whatever msgpack chose on the
// way in, so callers comparing numbers should normalize first.
func Unpack(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, ErrInvalidFormat
	}
	var m map[string]any
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, errors.Join(ErrInvalidFormat, err)
	}
	return m, nil
}

// Fingerprint returns 8 hex chars of the sha256 of Pack(v.Values()).
func Fingerprint(v Valuer) (string, error) {
	packed, err := Pack(v.Values())
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(packed)
	return hex.EncodeToString(h[:4]), nil
}

// Token packs v into a URL-safe string suitable for a data attribute.
func Token(v Valuer) (string, error) {
	packed, err := Pack(v.Values())
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(packed), nil
}

// ParseToken decodes a string produced by Token.
func ParseToken(token string) (map[string]any, error) {
	packed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidFormat, err)
	}
	return Unpack(packed)
}
