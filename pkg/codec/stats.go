// Package codec implements the byte-level encodings of the stored table
// values: the fixed-width stats record, the content-type discriminant and
// the presence-tagged optional string. The layouts are a compatibility
// contract; a database written by one build must decode in any other.
package codec

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/GZTimeWalker/berry-pasty/pkg/domain"
)

// StatsSize is the exact width of an encoded stats record:
// [Views u32 BE (4)][CreatedAt i64 BE (8)][UpdatedAt i64 BE (8)][LastViewedAt i64 BE (8)]
const StatsSize = 4 + 8*3

// EncodeStats serializes s into its 28-byte big-endian record.
func EncodeStats(s domain.Stats) []byte {
	buf := make([]byte, StatsSize)
	binary.BigEndian.PutUint32(buf[0:], s.Views)
	binary.BigEndian.PutUint64(buf[4:], uint64(s.CreatedAt.Unix()))
	binary.BigEndian.PutUint64(buf[12:], uint64(s.UpdatedAt.Unix()))
	binary.BigEndian.PutUint64(buf[20:], uint64(s.LastViewedAt.Unix()))
	return buf
}

// DecodeStats deserializes a 28-byte record. Any other length is a
// malformed record and fails; a timestamp the calendar cannot represent
// decodes to the Unix epoch.
func DecodeStats(b []byte) (domain.Stats, error) {
	if len(b) != StatsSize {
		return domain.Stats{}, errors.Errorf("stats record must be %d bytes, got %d", StatsSize, len(b))
	}
	return domain.Stats{
		Views:        binary.BigEndian.Uint32(b[0:4]),
		CreatedAt:    unixTime(int64(binary.BigEndian.Uint64(b[4:12]))),
		UpdatedAt:    unixTime(int64(binary.BigEndian.Uint64(b[12:20]))),
		LastViewedAt: unixTime(int64(binary.BigEndian.Uint64(b[20:28]))),
	}, nil
}

// unixTime converts a stored second count to a Time. Second counts near the
// int64 edges overflow the time package's internal representation; the
// round-trip check catches those and collapses them to the epoch.
func unixTime(sec int64) time.Time {
	t := time.Unix(sec, 0).UTC()
	if t.Unix() != sec {
		return time.Unix(0, 0).UTC()
	}
	return t
}
