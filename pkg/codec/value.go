package codec

import (
	"github.com/pkg/errors"

	"github.com/GZTimeWalker/berry-pasty/pkg/domain"
)

// Optional-string presence tags. The tag byte always leads the value.
const (
	optAbsent  = 0x00
	optPresent = 0x01
)

// EncodeType serializes the content-type discriminant as a single byte.
func EncodeType(t domain.ContentType) []byte {
	return []byte{byte(t)}
}

// DecodeType deserializes the discriminant byte. A value outside the known
// discriminants is a malformed record and fails rather than being coerced.
func DecodeType(b []byte) (domain.ContentType, error) {
	if len(b) != 1 {
		return 0, errors.Errorf("content type must be 1 byte, got %d", len(b))
	}
	switch b[0] {
	case byte(domain.ContentTypePlaintext):
		return domain.ContentTypePlaintext, nil
	case byte(domain.ContentTypeRedirect):
		return domain.ContentTypeRedirect, nil
	default:
		return 0, errors.Errorf("unknown content type byte 0x%02x", b[0])
	}
}

// EncodeString serializes a UTF-8 string value.
func EncodeString(s string) []byte {
	return []byte(s)
}

// DecodeString deserializes a UTF-8 string value.
func DecodeString(b []byte) string {
	return string(b)
}

// EncodeOptString serializes an optional string: a presence tag byte,
// followed by the value bytes when present.
func EncodeOptString(s string, present bool) []byte {
	if !present {
		return []byte{optAbsent}
	}
	buf := make([]byte, 1+len(s))
	buf[0] = optPresent
	copy(buf[1:], s)
	return buf
}

// DecodeOptString deserializes an optional string. An empty buffer or an
// unknown tag is a malformed record.
func DecodeOptString(b []byte) (string, bool, error) {
	if len(b) == 0 {
		return "", false, errors.New("optional string record is empty")
	}
	switch b[0] {
	case optAbsent:
		return "", false, nil
	case optPresent:
		return string(b[1:]), true, nil
	default:
		return "", false, errors.Errorf("unknown optional string tag 0x%02x", b[0])
	}
}
