package encryption

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"drivevault/internal/drives"
)

// AgeSecretEncryptor implements drives.SecretEncryptor using filippo.io/age
// with a locally stored X25519 identity. The identity file is written with
// 0600 permissions and is NOT passphrase-protected: the auto-mount path
// must be able to decrypt cached credentials without prompting.
type AgeSecretEncryptor struct {
	identityPath string
}

var _ drives.SecretEncryptor = (*AgeSecretEncryptor)(nil)

// NewAgeSecretEncryptor creates an encryptor reading its identity from
// identityPath.
func NewAgeSecretEncryptor(identityPath string) *AgeSecretEncryptor {
	return &AgeSecretEncryptor{identityPath: identityPath}
}

// Setup generates a new X25519 identity and writes it to the identity
// path. Refuses to overwrite an existing identity: losing it would orphan
// every stored credential.
func (e *AgeSecretEncryptor) Setup() error {
	if e.IsConfigured() {
		return fmt.Errorf("identity file already exists at %s", e.identityPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(e.identityPath), 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	if err := os.WriteFile(e.identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}

// IsConfigured returns true if the identity file exists.
func (e *AgeSecretEncryptor) IsConfigured() bool {
	_, err := os.Stat(e.identityPath)
	return err == nil
}

// EncryptString encrypts plaintext to the identity's recipient and returns
// the ciphertext base64-encoded for storage in a TEXT column.
func (e *AgeSecretEncryptor) EncryptString(plaintext string) (string, error) {
	identity, err := e.loadIdentity()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypting value: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecryptString inverts EncryptString.
func (e *AgeSecretEncryptor) DecryptString(ciphertext string) (string, error) {
	identity, err := e.loadIdentity()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting value: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted value: %w", err)
	}
	return string(plaintext), nil
}

func (e *AgeSecretEncryptor) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(e.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
		return identity, nil
	}
	return nil, fmt.Errorf("no identity found in %s", e.identityPath)
}
