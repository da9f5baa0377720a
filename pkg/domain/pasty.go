package domain

import "encoding/json"

// ContentType selects how a pasty is served: raw text or a short-link
// redirect. The numeric values are part of the stored byte layout and
// must not be reordered.
type ContentType uint8

const (
	ContentTypePlaintext ContentType = 0
	ContentTypeRedirect  ContentType = 1
)

func (t ContentType) String() string {
	if t == ContentTypeRedirect {
		return "link"
	}
	return "plain"
}

func (t ContentType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ContentType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ct, err := ParseContentType(s)
	if err != nil {
		return err
	}
	*t = ct
	return nil
}

// ParseContentType maps the request-facing names onto the enum. The empty
// string defaults to plaintext.
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "", "plain":
		return ContentTypePlaintext, nil
	case "link":
		return ContentTypeRedirect, nil
	default:
		return ContentTypePlaintext, ErrUnsupportedType
	}
}

type Pasty struct {
	ID      string      `json:"id"`
	Type    ContentType `json:"type"`
	Content string      `json:"content"`
}

// PastyInfo is one row of a listing: the pasty plus its stats, never the
// owner token.
type PastyInfo struct {
	ID      string      `json:"id"`
	Type    ContentType `json:"type"`
	Content string      `json:"content"`
	Stats   Stats       `json:"stats"`
}
