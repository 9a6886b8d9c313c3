package fetch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// ErrNoKeyring is returned when a bucket ships no key for an app.
var ErrNoKeyring = errors.New("no keyring available")

// KeyringPath returns the keyring a bucket provides for app: keys/<app>.asc
// if present, otherwise keys/bucket.asc. It returns ErrNoKeyring when neither exists.
func KeyringPath(bucketDir, app string) (string, error) {
	for _, name := range []string{app + ".asc", "bucket.asc"} {
		path := filepath.Join(bucketDir, "keys", name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Size() > 0 {
			return path, nil
		}
	}
	return "", ErrNoKeyring
}

// VerifySignature checks a detached OpenPGP signature, armored or binary.
func VerifySignature(artifactPath, signaturePath, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return &SignatureError{Path: artifactPath, Err: err}
	}

	artifact, err := os.Open(artifactPath)
	if err != nil {
		return &SignatureError{Path: artifactPath, Err: fmt.Errorf("open artifact: %w", err)}
	}
	defer artifact.Close()

	sig, err := os.Open(signaturePath)
	if err != nil {
		return &SignatureError{Path: artifactPath, Err: fmt.Errorf("open signature: %w", err)}
	}
	defer sig.Close()

	// Verify signature (try armored first)
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, artifact, sig, nil)
	if err != nil {
		artifact.Seek(0, io.SeekStart)
		sig.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, artifact, sig, nil)
	}
	if err != nil {
		return &SignatureError{Path: artifactPath, Err: err}
	}
	return nil
}

func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		// Try reading as non-armored keyring
		f.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}
