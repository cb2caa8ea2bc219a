package icon

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"
)

type captureTarget struct {
	got [][]byte
	err error
}

func (t *captureTarget) AddImage(r io.Reader) error {
	if t.err != nil {
		return t.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	t.got = append(t.got, b)
	return nil
}

func bmpBlob() []byte {
	return append([]byte("BM"), []byte("fake-bitmap-body-0123456789")...)
}

func TestSetFromEncodedRoundTrip(t *testing.T) {
	c := New()
	enc := base64.StdEncoding.EncodeToString(bmpBlob())

	if !c.SetFromEncoded(enc) {
		t.Fatal("SetFromEncoded rejected a valid icon")
	}
	tgt := &captureTarget{}
	if !c.Attach(tgt) {
		t.Fatal("Attach failed")
	}
	if len(tgt.got) != 1 || string(tgt.got[0]) != string(bmpBlob()) {
		t.Fatalf("attached %q", tgt.got)
	}
}

func TestSetFromEncodedToleratesWhitespaceAndMissingPadding(t *testing.T) {
	enc := strings.TrimRight(base64.StdEncoding.EncodeToString(bmpBlob()), "=")
	var wrapped strings.Builder
	for i, r := range enc {
		if i > 0 && i%8 == 0 {
			wrapped.WriteString("\n ")
		}
		wrapped.WriteRune(r)
	}

	c := New()
	if !c.SetFromEncoded(wrapped.String()) {
		t.Fatal("whitespace or missing padding should be tolerated")
	}
	if !c.Loaded() {
		t.Fatal("cache should hold the icon")
	}
}

func TestSetFromEncodedRejectsBadMagic(t *testing.T) {
	c := New()
	if !c.SetFromEncoded(base64.StdEncoding.EncodeToString(bmpBlob())) {
		t.Fatal("setup failed")
	}

	bad := base64.StdEncoding.EncodeToString([]byte("PNG not a bitmap"))
	if c.SetFromEncoded(bad) {
		t.Fatal("blob without magic accepted")
	}
	if c.SetFromEncoded("!!!not base64!!!") {
		t.Fatal("garbage accepted")
	}

	tgt := &captureTarget{}
	if !c.Attach(tgt) {
		t.Fatal("a rejected replacement must keep the previous icon")
	}
	if len(tgt.got) != 1 || string(tgt.got[0]) != string(bmpBlob()) {
		t.Fatalf("attached %q, want the previous icon", tgt.got)
	}
}

func TestSetFromEncodedReplaces(t *testing.T) {
	c := New()
	c.SetFromEncoded(base64.StdEncoding.EncodeToString(bmpBlob()))
	next := append([]byte("BM"), []byte("second-icon")...)
	if !c.SetFromEncoded(base64.StdEncoding.EncodeToString(next)) {
		t.Fatal("replacement rejected")
	}

	tgt := &captureTarget{}
	c.Attach(tgt)
	if len(tgt.got) != 1 || string(tgt.got[0]) != string(next) {
		t.Fatalf("attached %q, want the replacement", tgt.got)
	}
}

func TestSetFromEncodedRejectsGarbage(t *testing.T) {
	c := New()
	if c.SetFromEncoded("!!!not base64!!!") {
		t.Fatal("garbage accepted")
	}
	if c.Loaded() {
		t.Fatal("cache should be empty")
	}
}

func TestAttachDetectsCorruption(t *testing.T) {
	c := New()
	c.SetFromEncoded(base64.StdEncoding.EncodeToString(bmpBlob()))
	c.data[0] = 'X'

	tgt := &captureTarget{}
	if c.Attach(tgt) {
		t.Fatal("corrupted icon attached")
	}
	if c.Loaded() {
		t.Fatal("corrupted icon should be released")
	}
	if len(tgt.got) != 0 {
		t.Fatal("target received data")
	}
}

func TestAttachTargetError(t *testing.T) {
	c := New()
	c.SetFromEncoded(base64.StdEncoding.EncodeToString(bmpBlob()))
	if c.Attach(&captureTarget{err: errors.New("full")}) {
		t.Fatal("Attach should report target failure")
	}
	if !c.Loaded() {
		t.Fatal("a target failure does not invalidate the icon")
	}
}

func TestAttachEmpty(t *testing.T) {
	if New().Attach(&captureTarget{}) {
		t.Fatal("empty cache attached")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	c := New()
	c.SetFromEncoded(base64.StdEncoding.EncodeToString(bmpBlob()))
	c.Clear()
	c.Clear()
	c.Release()
	if c.Loaded() {
		t.Fatal("cache should be empty after Clear")
	}
}
