package extract

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/nwaples/rardecode/v2"
	"github.com/ulikunitz/xz"
)

// entry is one archive member, independent of the container format.
type entry struct {
	name  string
	mode  os.FileMode
	isDir bool
	link  string
	open  func() (io.ReadCloser, error)
}

// walker calls visit for every member in archive order.
type walker func(visit func(entry) error) error

func walkZip(path string) (walker, io.Closer, error) {
	// An insecure-path error still yields a usable reader; such entries
	// are rejected per entry by the caller.
	r, err := zip.OpenReader(path)
	if r == nil {
		return nil, nil, fmt.Errorf("open zip: %w", err)
	}
	return func(visit func(entry) error) error {
		for _, f := range r.File {
			mode := f.Mode()
			e := entry{name: f.Name, mode: mode, isDir: f.FileInfo().IsDir(), open: f.Open}
			if mode&os.ModeSymlink != 0 {
				link, err := readAll(f.Open)
				if err != nil {
					return fmt.Errorf("read symlink %s: %w", f.Name, err)
				}
				e.link = link
			}
			if err := visit(e); err != nil {
				return err
			}
		}
		return nil
	}, r, nil
}

func walkSevenZip(path string) (walker, io.Closer, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open 7z: %w", err)
	}
	return func(visit func(entry) error) error {
		for _, f := range r.File {
			info := f.FileInfo()
			e := entry{name: f.Name, mode: info.Mode(), isDir: info.IsDir(), open: f.Open}
			if err := visit(e); err != nil {
				return err
			}
		}
		return nil
	}, r, nil
}

func walkRar(path string) (walker, io.Closer, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open rar: %w", err)
	}
	return func(visit func(entry) error) error {
		for {
			h, err := r.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read rar header: %w", err)
			}
			e := entry{
				name:  h.Name,
				mode:  h.Mode(),
				isDir: h.IsDir,
				open:  func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
			}
			if err := visit(e); err != nil {
				return err
			}
		}
	}, r, nil
}

func walkTar(r io.Reader) walker {
	tr := tar.NewReader(r)
	return func(visit func(entry) error) error {
		for {
			header, err := tr.Next()
			if err == io.EOF {
				return nil // End of archive
			}
			if err != nil {
				return fmt.Errorf("read tar header: %w", err)
			}

			e := entry{
				name: header.Name,
				mode: header.FileInfo().Mode(),
				open: func() (io.ReadCloser, error) { return io.NopCloser(tr), nil },
			}
			switch header.Typeflag {
			case tar.TypeDir:
				e.isDir = true
			case tar.TypeReg:
			case tar.TypeSymlink:
				e.link = header.Linkname
			default:
				// Skip other types (hard links, devices, etc.)
				continue
			}
			if err := visit(e); err != nil {
				return err
			}
		}
	}
}

// decompressor opens a single-stream compressed file.
func decompressor(format Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case FormatGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gr, nil
	case FormatXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case FormatBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case FormatTar:
		return io.NopCloser(r), nil
	default:
		return nil, ErrUnsupported
	}
}

// walkStream handles tar and single-stream compressed files. When the
// decompressed payload is a tar it is walked as one; otherwise it becomes a
// single entry named after the file with its compression suffix removed.
func walkStream(path string, format Format, plainName string) (walker, io.Closer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}

	rc, err := decompressor(format, file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("create %s reader: %w", format, err)
	}
	closer := multiCloser{rc, file}

	br := bufio.NewReaderSize(rc, 4096)
	header, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		closer.Close()
		return nil, nil, fmt.Errorf("read %s stream: %w", format, err)
	}
	if format == FormatTar || Sniff(header) == FormatTar {
		return walkTar(br), closer, nil
	}

	return func(visit func(entry) error) error {
		return visit(entry{
			name: plainName,
			mode: 0644,
			open: func() (io.ReadCloser, error) { return io.NopCloser(br), nil },
		})
	}, closer, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func readAll(open func() (io.ReadCloser, error)) (string, error) {
	rc, err := open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
