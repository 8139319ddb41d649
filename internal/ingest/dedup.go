package ingest

import (
	"bytes"
	"encoding/hex"
	"image"

	"github.com/corona10/goimagehash"
)

// PerceptualHash computes a difference hash of an encoded image, returned as
// a hex string. Non-decodable payloads (video passthrough, exotic formats)
// yield an empty hash and are exempt from dedup.
func PerceptualHash(data []byte) string {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return ""
	}
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(hash.GetHash() >> (8 * uint(7-i)))
	}
	return hex.EncodeToString(buf)
}

// IsDuplicateHash reports whether hash matches any of the known hashes.
// Matching is exact; perceptually-near images are allowed through.
func IsDuplicateHash(hash string, known []string) bool {
	if hash == "" {
		return false
	}
	for _, k := range known {
		if k == hash {
			return true
		}
	}
	return false
}
