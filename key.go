// Package youtubetools defines the cache key and media kind primitives shared
// by the cache, download, and transcription layers.
package youtubetools

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// KeySize is the size of a cache key digest in bytes (256 bits).
const KeySize = 32

// Key identifies a (source URL, kind, quality) tuple. It is a BLAKE3 digest,
// so identical inputs always map to the identical key and distinct
// kind/quality combinations never collide.
type Key [KeySize]byte

// NewKey computes the cache key for a download request.
func NewKey(sourceURL string, kind Kind, quality string) Key {
	h := blake3.New()
	_, _ = h.Write([]byte(sourceURL))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(quality))
	var k Key
	h.Sum(k[:0])
	return k
}

// String returns the hex-encoded representation of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ShortString returns a shortened hex representation for display.
func (k Key) ShortString() string {
	return hex.EncodeToString(k[:8])
}

// IsZero returns true if the key is all zeros (uninitialized).
func (k Key) IsZero() bool {
	return k == Key{}
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	if len(text) != KeySize*2 {
		return fmt.Errorf("invalid key length: expected %d hex chars, got %d", KeySize*2, len(text))
	}
	_, err := hex.Decode(k[:], text)
	return err
}

// ParseKey parses a hex-encoded cache key string.
func ParseKey(s string) (Key, error) {
	var k Key
	if err := k.UnmarshalText([]byte(s)); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Kind classifies a cached artifact.
type Kind string

const (
	KindVideo      Kind = "video"
	KindAudio      Kind = "audio"
	KindTranscript Kind = "transcript"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindVideo, KindAudio, KindTranscript:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}

// Ext returns the file extension for artifacts of this kind, including the
// leading dot.
func (k Kind) Ext() string {
	switch k {
	case KindVideo:
		return ".mp4"
	case KindAudio:
		return ".mp3"
	case KindTranscript:
		return ".json"
	default:
		return ".bin"
	}
}

// ContentType returns the MIME type served for artifacts of this kind.
func (k Kind) ContentType() string {
	switch k {
	case KindVideo:
		return "video/mp4"
	case KindAudio:
		return "audio/mpeg"
	case KindTranscript:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Filename returns the cache file name for a key of this kind,
// in the form {key}.{ext}.
func (k Kind) Filename(key Key) string {
	return key.String() + k.Ext()
}
