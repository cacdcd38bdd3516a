package dither

import "testing"

func TestScaleFitsWithinBounds(t *testing.T) {
	if s := Scale(800, 480, 800, 480); s != 1 {
		t.Errorf("got %d, want 1", s)
	}
	if s := Scale(1600, 480, 800, 480); s != 2 {
		t.Errorf("got %d, want 2", s)
	}
	if s := Scale(1600, 960, 800, 480); s != 2 {
		t.Errorf("got %d, want 2", s)
	}
	if s := Scale(2000, 480, 800, 480); s != 3 {
		t.Errorf("got %d, want 3", s)
	}
}

func TestFloydSteinbergAllBlackRow(t *testing.T) {
	fs := New(8)
	grey := make([]byte, 8)
	out := make([]byte, 1)
	fs.Row(grey, out)
	if out[0] != 0xFF {
		t.Fatalf("got %08b, want all bits set", out[0])
	}
}

func TestFloydSteinbergAllWhiteRow(t *testing.T) {
	fs := New(8)
	grey := make([]byte, 8)
	for i := range grey {
		grey[i] = 255
	}
	out := make([]byte, 1)
	fs.Row(grey, out)
	if out[0] != 0x00 {
		t.Fatalf("got %08b, want no bits set", out[0])
	}
}

func TestFloydSteinbergDiffusesErrorWithinARow(t *testing.T) {
	// Traced by hand against the Floyd-Steinberg weights (7/16, 3/16,
	// 5/16, 1/16): a uniform dark-grey row picks up enough diffused error
	// to flip its second pixel white even though every input sample is
	// identical, and a uniform light-grey row stays fully white.
	dark := New(4)
	darkOut := make([]byte, 1)
	dark.Row([]byte{100, 100, 100, 100}, darkOut)
	if darkOut[0] != 0xB0 {
		t.Fatalf("dark row: got %08b, want %08b", darkOut[0], byte(0xB0))
	}

	light := New(4)
	lightOut := make([]byte, 1)
	light.Row([]byte{200, 200, 200, 200}, lightOut)
	if lightOut[0] != 0x00 {
		t.Fatalf("light row: got %08b, want 0", lightOut[0])
	}
}
