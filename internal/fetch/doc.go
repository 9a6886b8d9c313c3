// Package fetch downloads manifest artifacts into the shared cache and
// verifies them.
//
// # Cache
//
// Artifacts live at <root>/cache/<app>#<version>#<file>. A download is
// written to a unique <name>.*.download file and renamed into place only
// when complete, so a hash check never sees a half-written file and two
// concurrent fetches never share a temporary file. Cached artifacts are reused
// unless the install options disable the cache.
//
// # Verification
//
// Declared hashes carry an optional algorithm prefix (md5, sha1, sha256,
// sha512; sha256 when omitted). A mismatch moves the artifact aside to
// <name>.corrupt so that no later run reuses it. Versions named "nightly"
// are exempt because their content changes without a hash update.
//
// When a manifest lists a signature URL and the bucket ships a keyring under
// keys/, the detached OpenPGP signature is checked as well.
//
// # Transport
//
// The Agent interface performs the actual transfer. HTTPAgent retries with
// exponential backoff and reports progress through a Transfer, whose state
// machine is Queued, Downloading, Paused, Completed and Failed.
package fetch
