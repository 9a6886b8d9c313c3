package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Format identifies how an artifact is unpacked.
type Format string

const (
	FormatZip      Format = "zip"
	FormatSevenZip Format = "7z"
	FormatRar      Format = "rar"
	FormatTar      Format = "tar"
	FormatGzip     Format = "gzip"
	FormatXz       Format = "xz"
	FormatBzip2    Format = "bzip2"
	FormatZstd     Format = "zstd"
	FormatExe      Format = "exe"
	FormatMsi      Format = "msi"
	FormatUnknown  Format = "unknown"
)

// IsArchive reports whether the format is unpacked by Extract. exe and msi
// payloads are left to the installer directive.
func (f Format) IsArchive() bool {
	switch f {
	case FormatZip, FormatSevenZip, FormatRar, FormatTar, FormatGzip, FormatXz, FormatBzip2, FormatZstd:
		return true
	default:
		return false
	}
}

var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatGzip},
	{".tgz", FormatGzip},
	{".tar.xz", FormatXz},
	{".txz", FormatXz},
	{".tar.bz2", FormatBzip2},
	{".tbz2", FormatBzip2},
	{".tbz", FormatBzip2},
	{".tar.zst", FormatZstd},
	{".tzst", FormatZstd},
	{".tar", FormatTar},
	{".zip", FormatZip},
	{".nupkg", FormatZip},
	{".7z", FormatSevenZip},
	{".rar", FormatRar},
	{".gz", FormatGzip},
	{".xz", FormatXz},
	{".bz2", FormatBzip2},
	{".zst", FormatZstd},
	{".exe", FormatExe},
	{".msi", FormatMsi},
}

var magics = []struct {
	magic  []byte
	offset int
	format Format
}{
	{[]byte("PK\x03\x04"), 0, FormatZip},
	{[]byte("7z\xBC\xAF\x27\x1C"), 0, FormatSevenZip},
	{[]byte("Rar!\x1A\x07"), 0, FormatRar},
	{[]byte{0x1F, 0x8B}, 0, FormatGzip},
	{[]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, 0, FormatXz},
	{[]byte("BZh"), 0, FormatBzip2},
	{[]byte{0x28, 0xB5, 0x2F, 0xFD}, 0, FormatZstd},
	{[]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, 0, FormatMsi},
	{[]byte("MZ"), 0, FormatExe},
	{[]byte("ustar"), 257, FormatTar},
}

// FormatFromName detects the format from the file name alone.
func FormatFromName(name string) Format {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format
		}
	}
	return FormatUnknown
}

// Sniff detects the format from leading bytes.
func Sniff(header []byte) Format {
	for _, m := range magics {
		end := m.offset + len(m.magic)
		if len(header) >= end && bytes.Equal(header[m.offset:end], m.magic) {
			return m.format
		}
	}
	return FormatUnknown
}

// Detect uses the file name suffix and falls back to magic bytes.
func Detect(path string) (Format, error) {
	if f := FormatFromName(path); f != FormatUnknown {
		return f, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	header := make([]byte, 512)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, fmt.Errorf("read archive header: %w", err)
	}
	return Sniff(header[:n]), nil
}
