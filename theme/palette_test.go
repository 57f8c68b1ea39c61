package theme

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGPL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two.gpl")
	data := "GIMP Palette\nName: two\nColumns: 2\n# comment\n  0   0   0 black\n255 128  64\nbad line\n300 0 0 out of range\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadGPL(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "two" || len(p.Colors) != 2 {
		t.Fatalf("palette = %+v", p)
	}
	if got := p.Lookup(0.5); got != (RGB{127, 64, 32}) {
		t.Errorf("Lookup(0.5) = %v", got)
	}
	if got := p.Lookup(-1); got != p.Colors[0] {
		t.Errorf("Lookup(-1) = %v", got)
	}
	if got := p.Lookup(2); got != p.Colors[1] {
		t.Errorf("Lookup(2) = %v", got)
	}

	empty := filepath.Join(t.TempDir(), "empty.gpl")
	os.WriteFile(empty, []byte("GIMP Palette\n"), 0644)
	if _, err := LoadGPL(empty); err == nil {
		t.Error("palette without colors accepted")
	}
}

func TestThemeColors(t *testing.T) {
	th := New(nil)
	if th.Palette.Name != DefaultPalette().Name {
		t.Fatal("nil palette not defaulted")
	}
	if th.Color(0) != "#1b122b" {
		t.Errorf("Color(0) = %s", th.Color(0))
	}
	if th.Success() != "#fae45c" {
		t.Errorf("Success = %s", th.Success())
	}
}
