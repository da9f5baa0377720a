package util

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenID returns a random base62 id of the given length, retrying on
// collision via the exists probe.
func GenID(length int, exists func(string) (bool, error)) (string, error) {
	if length <= 0 {
		return "", errors.New("id length must be positive")
	}
	for retry := 0; retry < 5; retry++ {
		id, err := randomID(length)
		if err != nil {
			return "", err
		}
		exist, err := exists(id)
		if err != nil {
			return "", err
		}
		if !exist {
			return id, nil
		}
	}
	return "", errors.New("id collision after 5 retries")
}

// randomID draws alphabet indexes by rejection sampling so every character
// is uniform over the 62-symbol alphabet.
func randomID(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "rand fail")
		}
		for _, b := range buf {
			idx := int(b & 0x3f)
			if idx >= len(base62Chars) {
				continue
			}
			out = append(out, base62Chars[idx])
			if len(out) == length {
				return string(out), nil
			}
		}
	}
}
