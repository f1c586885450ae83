package viz

import (
	"strings"
	"testing"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	got := c.String()
	if !strings.HasPrefix(got, "⠁") {
		t.Errorf("expected top-left dot, got %q", got)
	}

	c.Set(1, 3)
	if !strings.HasPrefix(c.String(), string(rune(0x2800|0x01|0x80))) {
		t.Errorf("expected both dots in first cell, got %q", c.String())
	}
}

func TestCanvasBounds(t *testing.T) {
	c := NewCanvas(2, 2)
	c.Set(-1, 0)
	c.Set(0, -4)
	c.Set(100, 0)
	c.Set(0, 100)
	for _, r := range c.String() {
		if r != 0x2800 && r != '\n' {
			t.Fatalf("out-of-range Set modified canvas: %q", c.String())
		}
	}
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.Line(0, 0, 7, 0)
	for i, r := range []rune(c.String()) {
		if r == '\n' {
			break
		}
		if r&0x09 != 0x09 {
			t.Errorf("cell %d missing top-row dots: %U", i, r)
		}
	}
}

func TestCanvasClear(t *testing.T) {
	c := NewCanvas(3, 3)
	c.Line(0, 0, 5, 11)
	c.Clear()
	for _, r := range c.String() {
		if r != 0x2800 && r != '\n' {
			t.Fatal("clear left dots behind")
		}
	}
}
