// Package icon owns the single decoded inline icon the board may hold.
package icon

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
	"unicode"
)

// Magic is the signature every icon image must start with.
var Magic = []byte("BM")

// Target is anything that can take an image for one render call.
type Target interface {
	AddImage(r io.Reader) error
}

// Cache holds at most one decoded icon. Replacing it releases the previous
// one first. Not safe for concurrent use.
type Cache struct {
	data []byte
}

func New() *Cache { return &Cache{} }

// SetFromEncoded decodes a base64 blob and keeps it if it carries the image
// magic. Whitespace is ignored and missing padding is added. The previous
// icon is released only once the new one is accepted; on failure it is kept
// and false is returned.
func (c *Cache) SetFromEncoded(encoded string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, encoded)
	if rem := len(cleaned) % 4; rem != 0 {
		cleaned += strings.Repeat("=", 4-rem)
	}

	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil || !bytes.HasPrefix(decoded, Magic) {
		return false
	}
	c.Release()
	c.data = decoded
	return true
}

// Attach hands the cached icon to target as a non-owning reader. The magic
// is checked again; a corrupted icon is released and false is returned.
func (c *Cache) Attach(target Target) bool {
	if c.data == nil {
		return false
	}
	if !bytes.HasPrefix(c.data, Magic) {
		c.Release()
		return false
	}
	if err := target.AddImage(bytes.NewReader(c.data)); err != nil {
		return false
	}
	return true
}

// Clear drops the cached icon. Safe to call repeatedly.
func (c *Cache) Clear() { c.Release() }

// Release frees the decoded data. Safe to call repeatedly.
func (c *Cache) Release() { c.data = nil }

func (c *Cache) Loaded() bool { return c.data != nil }
