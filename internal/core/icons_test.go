package core

import "testing"

func TestIconResolution(t *testing.T) {
	reg := DefaultIcons()

	if got := reg.Resolve("MapPin"); got.Name != "MapPin" || got.SVG == "" {
		t.Fatalf("MapPin resolved to %q", got.Name)
	}
	if got := reg.Resolve("DoesNotExist"); got.Name != FallbackIconName {
		t.Fatalf("unknown name resolved to %q", got.Name)
	}
	if got := reg.Resolve(""); got.Name != FallbackIconName {
		t.Fatalf("unset name resolved to %q", got.Name)
	}
}

func TestNewIconRegistryRegistersFallback(t *testing.T) {
	fb := Icon{Name: "Dot", SVG: `<circle cx="12" cy="12" r="1"/>`}
	reg := NewIconRegistry(fb, Icon{Name: "A", SVG: "a"})

	if reg.Fallback() != fb {
		t.Fatalf("fallback not kept")
	}
	if got := reg.Resolve("Dot"); got != fb {
		t.Fatalf("fallback should resolve by name")
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "A" || names[1] != "Dot" {
		t.Fatalf("names = %v", names)
	}
}
