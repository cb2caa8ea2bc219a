package payload

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"plain", "Hello", "Hello", true},
		{"trimmed", "  Hello \n", "Hello", true},
		{"empty", "", "", false},
		{"whitespace only", " \t\r\n ", "", false},
		{"invalid utf8", "\xff\xfe", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseText(tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseText(%q) = %q,%v want %q,%v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseStructured(t *testing.T) {
	raw := `{"name":"greeting","elements":[
		{"kind":"font","data":"lemon"},
		{"kind":"background","data":"sunset"},
		{"kind":"color","data":"#FF0000"},
		{"kind":"color","data":65280},
		{"kind":"icon","data":"heart"},
		{"kind":"text","data":"Hi"},
		{"kind":"effect","data":"top-to-bottom"}
	]}`

	cmd, ok := ParseStructured(raw)
	if !ok {
		t.Fatal("ParseStructured rejected a valid command")
	}
	want := Command{
		Name: "greeting",
		Elements: []Element{
			Font{ID: "lemon"},
			Background{Image: "sunset"},
			Color{Value: "#FF0000"},
			Color{Value: "65280", Numeric: true},
			Icon{Data: "heart"},
			Text{Text: "Hi"},
			Effect{ID: "top-to-bottom"},
		},
	}
	if !reflect.DeepEqual(cmd, want) {
		t.Errorf("ParseStructured = %#v\nwant %#v", cmd, want)
	}
}

func TestParseStructuredRejectsWholeCommand(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"elements":`},
		{"top-level array", `[{"kind":"text","data":"x"}]`},
		{"top-level null", `null`},
		{"elements not array", `{"elements":{"kind":"text"}}`},
		{"elements null", `{"elements":null}`},
		{"element not object", `{"elements":["text"]}`},
		{"missing kind", `{"elements":[{"kind":"text","data":"ok"},{"data":"x"}]}`},
		{"missing data", `{"elements":[{"kind":"text","data":"ok"},{"kind":"text"}]}`},
		{"null data", `{"elements":[{"kind":"text","data":null}]}`},
		{"object data", `{"elements":[{"kind":"text","data":{"a":1}}]}`},
		{"unknown kind", `{"elements":[{"kind":"sparkle","data":"x"}]}`},
		{"non-string kind", `{"elements":[{"kind":3,"data":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := ParseStructured(tt.raw)
			if ok {
				t.Fatalf("ParseStructured(%s) accepted", tt.raw)
			}
			if len(cmd.Elements) != 0 {
				t.Fatalf("partial command returned: %#v", cmd)
			}
		})
	}
}

func TestParseStructuredWithoutElements(t *testing.T) {
	cmd, ok := ParseStructured(`{"name":"empty"}`)
	if !ok {
		t.Fatal("object without elements should parse as an empty command")
	}
	if cmd.Name != "empty" || len(cmd.Elements) != 0 {
		t.Fatalf("unexpected command %#v", cmd)
	}
}

// ClassifyIcon is a length-and-alphabet heuristic. These cases pin the exact
// boundary (100 characters, 80% base64 alphabet) rather than format detection.
func TestClassifyIconHeuristicBoundary(t *testing.T) {
	tests := []struct {
		name string
		data string
		want IconSource
	}{
		{"99 base64 chars", strings.Repeat("A", 99), IconFile},
		{"100 base64 chars", strings.Repeat("A", 100), IconInline},
		{"exactly 80 percent", strings.Repeat("A", 80) + strings.Repeat("-", 20), IconInline},
		{"just under 80 percent", strings.Repeat("A", 79) + strings.Repeat("-", 21), IconFile},
		{"short file name", "heart", IconFile},
		{"long punctuated name", strings.Repeat("a-b_c.d ", 13), IconFile},
		{"long base64-looking path", strings.Repeat("icons/heart", 10), IconInline},
		{"padding counts", strings.Repeat("QU", 49) + "==", IconInline},
		{"multibyte runes count once", strings.Repeat("A", 80) + strings.Repeat("é", 20), IconInline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyIcon(tt.data); got != tt.want {
				t.Errorf("ClassifyIcon(len=%d) = %v, want %v", len(tt.data), got, tt.want)
			}
		})
	}
}
