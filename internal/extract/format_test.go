package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"app.zip", FormatZip},
		{"App.ZIP", FormatZip},
		{"pkg.nupkg", FormatZip},
		{"app.7z", FormatSevenZip},
		{"app.rar", FormatRar},
		{"app.tar", FormatTar},
		{"app.tar.gz", FormatGzip},
		{"app.tgz", FormatGzip},
		{"app.tar.xz", FormatXz},
		{"app.tar.bz2", FormatBzip2},
		{"app.tbz2", FormatBzip2},
		{"app.tar.zst", FormatZstd},
		{"app.gz", FormatGzip},
		{"setup.exe", FormatExe},
		{"setup.msi", FormatMsi},
		{"README", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFromName(tt.name); got != tt.want {
				t.Errorf("FormatFromName(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestSniff(t *testing.T) {
	tarHeader := make([]byte, 512)
	copy(tarHeader[257:], "ustar")

	tests := []struct {
		name   string
		header []byte
		want   Format
	}{
		{"zip", []byte("PK\x03\x04rest"), FormatZip},
		{"7z", []byte("7z\xBC\xAF\x27\x1C\x00\x04"), FormatSevenZip},
		{"rar", []byte("Rar!\x1A\x07\x01\x00"), FormatRar},
		{"gzip", []byte{0x1F, 0x8B, 0x08}, FormatGzip},
		{"xz", []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, FormatXz},
		{"bzip2", []byte("BZh91AY"), FormatBzip2},
		{"zstd", []byte{0x28, 0xB5, 0x2F, 0xFD, 0x00}, FormatZstd},
		{"msi", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, FormatMsi},
		{"exe", []byte("MZ\x90\x00"), FormatExe},
		{"tar", tarHeader, FormatTar},
		{"short", []byte("P"), FormatUnknown},
		{"text", []byte("hello world"), FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.header); got != tt.want {
				t.Errorf("Sniff = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	noExt := filepath.Join(dir, "download")
	os.WriteFile(noExt, []byte("7z\xBC\xAF\x27\x1C\x00\x04"), 0644)

	got, err := Detect(noExt)
	if err != nil || got != FormatSevenZip {
		t.Errorf("Detect = %s, %v; want 7z", got, err)
	}

	if _, err := Detect(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file without known suffix")
	}
}

func TestFormatIsArchive(t *testing.T) {
	for _, f := range []Format{FormatZip, FormatSevenZip, FormatRar, FormatTar, FormatGzip, FormatXz, FormatBzip2, FormatZstd} {
		if !f.IsArchive() {
			t.Errorf("%s should be an archive", f)
		}
	}
	for _, f := range []Format{FormatExe, FormatMsi, FormatUnknown} {
		if f.IsArchive() {
			t.Errorf("%s should not be an archive", f)
		}
	}
}
