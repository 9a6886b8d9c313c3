package fetch

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Supported hash algorithms.
const (
	AlgoMD5    = "md5"
	AlgoSHA1   = "sha1"
	AlgoSHA256 = "sha256"
	AlgoSHA512 = "sha512"
)

// ParseHash splits a declared hash into algorithm and lowercase hex digest.
// A missing prefix means sha256.
func ParseHash(declared string) (algo, digest string, err error) {
	declared = strings.TrimSpace(declared)
	algo = AlgoSHA256
	digest = declared
	if i := strings.IndexByte(declared, ':'); i >= 0 {
		algo = strings.ToLower(declared[:i])
		digest = declared[i+1:]
	}
	h, err := newHash(algo)
	if err != nil {
		return "", "", err
	}
	if _, err := hex.DecodeString(digest); err != nil || len(digest) != h.Size()*2 {
		return "", "", fmt.Errorf("invalid %s digest %q", algo, digest)
	}
	return algo, strings.ToLower(digest), nil
}

func newHash(algo string) (hash.Hash, error) {
	switch algo {
	case AlgoMD5:
		return md5.New(), nil
	case AlgoSHA1:
		return sha1.New(), nil
	case AlgoSHA256:
		return sha256.New(), nil
	case AlgoSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

// ComputeHash returns the hex digest of a file.
func ComputeHash(path, algo string) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyHash checks a file against a declared hash. A mismatch returns a
// *HashMismatchError; the file is left in place (see Manager for quarantine).
func VerifyHash(path, declared string) error {
	algo, expected, err := ParseHash(declared)
	if err != nil {
		return fmt.Errorf("parse hash: %w", err)
	}

	actual, err := ComputeHash(path, algo)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	if !strings.EqualFold(actual, expected) {
		return &HashMismatchError{
			Path:      path,
			Algorithm: algo,
			Expected:  expected,
			Actual:    actual,
		}
	}
	return nil
}
