// Package payload validates work items pulled from the remote feeds.
//
// Plain text items are trimmed and checked for content. Structured items are
// JSON documents of the form
//
//	{"elements": [{"kind": "text", "data": "Hi"}, {"kind": "effect", "data": "top-to-bottom"}]}
//
// and are parsed all-or-nothing into a Command.
package payload

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Kind tags a structured command element.
type Kind string

const (
	KindFont       Kind = "font"
	KindBackground Kind = "background"
	KindColor      Kind = "color"
	KindIcon       Kind = "icon"
	KindText       Kind = "text"
	KindEffect     Kind = "effect"
)

// Element is one step of a structured command. The concrete types are Font,
// Background, Color, Icon, Text and Effect.
type Element interface {
	Kind() Kind
}

type Font struct{ ID string }

type Background struct{ Image string }

// Color keeps the raw value; it is parsed at render time so a bad color only
// affects itself. Numeric is set when the JSON data was a number rather than
// a string.
type Color struct {
	Value   string
	Numeric bool
}

type Icon struct{ Data string }

type Text struct{ Text string }

type Effect struct{ ID string }

func (Font) Kind() Kind       { return KindFont }
func (Background) Kind() Kind { return KindBackground }
func (Color) Kind() Kind      { return KindColor }
func (Icon) Kind() Kind       { return KindIcon }
func (Text) Kind() Kind       { return KindText }
func (Effect) Kind() Kind     { return KindEffect }

// Command is a validated structured command.
type Command struct {
	// Name is the optional "name" field, used for log previews.
	Name     string
	Elements []Element
}

// ParseText trims raw and rejects empty or non-UTF-8 input.
func ParseText(raw string) (string, bool) {
	if !utf8.ValidString(raw) {
		return "", false
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}
	return text, true
}

// ParseStructured parses raw into a Command. Any malformed element rejects
// the whole command; no partial command is ever returned.
func ParseStructured(raw string) (Command, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		return Command{}, false
	}

	cmd := Command{Name: stringValue(doc["name"])}

	elemsRaw, ok := doc["elements"]
	if !ok {
		return cmd, true
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(elemsRaw, &elems); err != nil || isNull(elemsRaw) {
		return Command{}, false
	}

	cmd.Elements = make([]Element, 0, len(elems))
	for _, er := range elems {
		el, ok := parseElement(er)
		if !ok {
			return Command{}, false
		}
		cmd.Elements = append(cmd.Elements, el)
	}
	return cmd, true
}

func parseElement(raw json.RawMessage) (Element, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	kindRaw, ok := fields["kind"]
	if !ok {
		return nil, false
	}
	dataRaw, ok := fields["data"]
	if !ok || isNull(dataRaw) {
		return nil, false
	}

	var kind string
	if err := json.Unmarshal(kindRaw, &kind); err != nil {
		return nil, false
	}
	data, numeric, ok := scalarText(dataRaw)
	if !ok {
		return nil, false
	}

	switch Kind(kind) {
	case KindFont:
		return Font{ID: data}, true
	case KindBackground:
		return Background{Image: data}, true
	case KindColor:
		return Color{Value: data, Numeric: numeric}, true
	case KindIcon:
		return Icon{Data: data}, true
	case KindText:
		return Text{Text: data}, true
	case KindEffect:
		return Effect{ID: data}, true
	default:
		return nil, false
	}
}

// scalarText accepts a JSON string or number and returns its text.
func scalarText(raw json.RawMessage) (text string, numeric bool, ok bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, false, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true, true
	}
	return "", false, false
}

func stringValue(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
