package platform

import (
	"context"
	"errors"
	"runtime"
	"testing"
)

// MockDetector is a test implementation of Detector.
type MockDetector struct {
	info *Info
	err  error
}

// NewMockDetector creates a mock detector with specified return values.
func NewMockDetector(info *Info, err error) Detector {
	return &MockDetector{info: info, err: err}
}

// Detect returns the pre-configured info and error.
func (m *MockDetector) Detect(ctx context.Context) (*Info, error) {
	return m.info, m.err
}

func TestRealDetector_Detect(t *testing.T) {
	detector := NewDetector()

	info, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %v, want %v", info.OS, runtime.GOOS)
	}
	if !info.Arch.IsValid() {
		t.Errorf("Arch = %q, want one of 32bit, 64bit, arm64", info.Arch)
	}
	if info.ArchRaw == "" {
		t.Error("ArchRaw should not be empty")
	}
}

func TestRealDetector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDetector().Detect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Detect() error = %v, want wrapped context.Canceled", err)
	}
}

func TestMockDetector(t *testing.T) {
	want := &Info{OS: "windows", Arch: Arch64}
	got, err := NewMockDetector(want, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != want {
		t.Errorf("Detect() = %v, want %v", got, want)
	}
}

func TestParseArch(t *testing.T) {
	tests := []struct {
		in      string
		want    Arch
		wantErr bool
	}{
		{"32bit", Arch32, false},
		{"64bit", Arch64, false},
		{"arm64", ArchARM64, false},
		{"x86_64", "", true},
		{"64BIT", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseArch(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArch(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				var archErr *UnsupportedArchError
				if !errors.As(err, &archErr) {
					t.Errorf("error type = %T, want *UnsupportedArchError", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseArch(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
