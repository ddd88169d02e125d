package bake

import (
	"bytes"
	"image/png"
	"testing"
)

func TestTexture3D_SetAt(t *testing.T) {
	tex := NewTexture3D(4, 3, 2)
	want := [4]float32{0.1, 0.2, 0.3, 0.4}
	tex.Set(3, 2, 1, want)
	if got := tex.At(3, 2, 1); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := tex.At(0, 0, 0); got != ([4]float32{}) {
		t.Errorf("untouched texel must be zero, got %v", got)
	}
}

func TestEncodeSignedUnit(t *testing.T) {
	tests := []struct{ in, want float32 }{
		{-1, 0},
		{0, 0.5},
		{1, 1},
		{-2, 0},
		{2, 1},
	}
	for _, tt := range tests {
		if got := encodeSignedUnit(tt.in); got != tt.want {
			t.Errorf("encodeSignedUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSliceAtlas_Dimensions(t *testing.T) {
	tex := NewTexture3D(8, 4, 6)
	atlas := tex.SliceAtlas(2)

	// 6 slices pack into a 3x2 grid of scaled slices.
	if w := atlas.Bounds().Dx(); w != 3*8*2 {
		t.Errorf("unexpected atlas width %d", w)
	}
	if h := atlas.Bounds().Dy(); h != 2*4*2 {
		t.Errorf("unexpected atlas height %d", h)
	}
}

func TestWritePreviewPNG(t *testing.T) {
	tex := NewTexture3D(4, 4, 4)
	tex.Set(1, 1, 1, [4]float32{1, 0.5, 0, 1})

	var buf bytes.Buffer
	if err := tex.WritePreviewPNG(&buf, 1); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("preview is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("unexpected preview size %v", img.Bounds())
	}
}
