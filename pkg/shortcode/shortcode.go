// Package shortcode converts between numeric media ids and the public short
// codes used in post URLs (https://www.instagram.com/p/<code>/).
//
// A short code is the id written in base 64, most significant digit first, over
// the alphabet A-Z a-z 0-9 - _ with no padding. Id 0 encodes to "".
package shortcode

import (
	"math"
	"strconv"
	"strings"

	errs "igfeed/pkg/errors"
)

// Alphabet is the digit set, in value order
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

const base = uint64(len(Alphabet))

var digitValue [256]int8

func init() {
	for i := range digitValue {
		digitValue[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		digitValue[Alphabet[i]] = int8(i)
	}
}

// Encode returns the short code for id
func Encode(id uint64) string {
	if id == 0 {
		return ""
	}
	var buf [11]byte // 64^11 > 2^64
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = Alphabet[id%base]
		id /= base
	}
	return string(buf[i:])
}

// Decode returns the numeric id for code. A character outside Alphabet, or a
// code too long for a uint64, is an invalid_argument error.
func Decode(code string) (uint64, error) {
	var id uint64
	for i := 0; i < len(code); i++ {
		v := digitValue[code[i]]
		if v < 0 {
			return 0, errs.InvalidArgument("short code %q contains invalid character %q", code, code[i])
		}
		if id > (math.MaxUint64-uint64(v))/base {
			return 0, errs.InvalidArgument("short code %q overflows a 64-bit id", code)
		}
		id = id*base + uint64(v)
	}
	return id, nil
}

// ParseID parses a numeric media id. Composite ids of the form
// "<id>_<ownerId>", as returned by the feed and comment endpoints, are
// reduced to the part before the first underscore.
func ParseID(raw string) (uint64, error) {
	prefix, _, _ := strings.Cut(strings.TrimSpace(raw), "_")
	id, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeInvalidArgument, err, "media id %q is not numeric", raw)
	}
	return id, nil
}

// FromID returns the short code for a raw (possibly composite) media id
func FromID(raw string) (string, error) {
	id, err := ParseID(raw)
	if err != nil {
		return "", err
	}
	return Encode(id), nil
}

// ToID returns the decimal media id for a short code
func ToID(code string) (string, error) {
	id, err := Decode(code)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}
