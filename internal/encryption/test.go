package encryption

import (
	"fmt"
	"strings"

	"drivevault/internal/drives"
)

// testPrefix marks values produced by TestSecretEncryptor so encrypted
// output is clearly different from plaintext while remaining deterministic
// and reversible.
const testPrefix = "DVENC:"

// TestSecretEncryptor is a deterministic encryptor for tests. It prepends
// a fixed marker during encryption and strips it during decryption; no
// crypto involved.
type TestSecretEncryptor struct{}

var _ drives.SecretEncryptor = (*TestSecretEncryptor)(nil)

func NewTestSecretEncryptor() *TestSecretEncryptor {
	return &TestSecretEncryptor{}
}

func (*TestSecretEncryptor) EncryptString(plaintext string) (string, error) {
	return testPrefix + plaintext, nil
}

func (*TestSecretEncryptor) DecryptString(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, testPrefix) {
		return "", fmt.Errorf("invalid test encryption marker")
	}
	return strings.TrimPrefix(ciphertext, testPrefix), nil
}
