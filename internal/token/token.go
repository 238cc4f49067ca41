// Package token encodes archive cursors as compact opaque strings that can
// be pasted between /pin export and magpiectl without shell-quoting hazards.
package token

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mr-tron/base58"

	"github.com/rooksworth/magpie/internal/core"
)

var (
	ErrTooShort    = errors.New("token too short")
	ErrBadChecksum = errors.New("token checksum mismatch")
)

const checksumLen = 4

// Encode packs a cursor as base58(millis || id || checksum). The checksum is
// the low four bytes of the payload's xxhash64.
func Encode(c core.Cursor) string {
	payload := make([]byte, 8, 8+len(c.ID)+checksumLen)
	binary.BigEndian.PutUint64(payload, uint64(c.ArchivedAt.UnixMilli()))
	payload = append(payload, c.ID...)

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64(payload))
	payload = append(payload, sum[4:]...)

	return base58.Encode(payload)
}

func Decode(s string) (core.Cursor, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return core.Cursor{}, err
	}
	if len(raw) < 8+checksumLen {
		return core.Cursor{}, ErrTooShort
	}

	payload, check := raw[:len(raw)-checksumLen], raw[len(raw)-checksumLen:]

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64(payload))
	for i := 0; i < checksumLen; i++ {
		if check[i] != sum[4+i] {
			return core.Cursor{}, ErrBadChecksum
		}
	}

	millis := int64(binary.BigEndian.Uint64(payload[:8]))
	return core.Cursor{
		ArchivedAt: time.UnixMilli(millis),
		ID:         string(payload[8:]),
	}, nil
}
