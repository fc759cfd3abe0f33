package syntax

import (
	"testing"

	"go.lsp.dev/protocol"
)

func TestPositionAt(t *testing.T) {
	src := "fn a($x) = $x;\n*[_type == \"post\"]\n"
	tests := []struct {
		offset int
		want   protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{3, protocol.Position{Line: 0, Character: 3}},
		{15, protocol.Position{Line: 1, Character: 0}},
		{17, protocol.Position{Line: 1, Character: 2}},
		{1000, protocol.Position{Line: 2, Character: 0}},
	}
	for _, tt := range tests {
		got := PositionAt(src, tt.offset)
		if got != tt.want {
			t.Errorf("PositionAt(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
	}
}

func TestPositionAtCountsUTF16(t *testing.T) {
	src := "\"é😀\" x"
	// é is one UTF-16 unit, the emoji is two, then the quote and the space.
	got := PositionAt(src, len(src)-1)
	if got.Character != 6 {
		t.Errorf("expected character 6, got %d", got.Character)
	}
}

func TestOffsetAtRoundTrip(t *testing.T) {
	src := "line one\nline two\nthree"
	for _, off := range []int{0, 4, 9, 13, 18, len(src)} {
		pos := PositionAt(src, off)
		if back := OffsetAt(src, pos); back != off {
			t.Errorf("offset %d -> %+v -> %d", off, pos, back)
		}
	}
	// Past end of line clamps to the newline.
	if got := OffsetAt(src, protocol.Position{Line: 0, Character: 99}); got != 8 {
		t.Errorf("clamped offset: got %d, want 8", got)
	}
}

func TestUnquote(t *testing.T) {
	tests := map[string]string{
		`"post"`: "post",
		`'post'`: "post",
		`"`:      `"`,
		`post`:   "post",
		`"post'`: `"post'`,
	}
	for in, want := range tests {
		if got := Unquote(in); got != want {
			t.Errorf("Unquote(%q) = %q, want %q", in, got, want)
		}
	}
}
