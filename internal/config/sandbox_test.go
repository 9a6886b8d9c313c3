package config

import "testing"

func TestSandbox(t *testing.T) {
	L := newSandboxedVM()
	defer L.Close()

	blocked := []string{"os", "io", "require", "dofile", "loadfile", "load", "loadstring", "module", "package", "debug"}
	for _, name := range blocked {
		t.Run(name, func(t *testing.T) {
			if err := L.DoString(`assert(` + name + ` == nil)`); err != nil {
				t.Errorf("%s should be removed: %v", name, err)
			}
		})
	}

	if err := L.DoString(`assert(string.upper("a") == "A" and math.max(1, 2) == 2 and #table.concat({"x"}) == 1)`); err != nil {
		t.Errorf("safe libraries unavailable: %v", err)
	}
}
