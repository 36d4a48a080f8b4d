package encryption

import "testing"

func TestTestSecretEncryptor(t *testing.T) {
	e := NewTestSecretEncryptor()

	ciphertext, err := e.EncryptString("secret")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if ciphertext == "secret" {
		t.Error("output identical to input")
	}

	got, err := e.DecryptString(ciphertext)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if got != "secret" {
		t.Errorf("round trip = %q", got)
	}

	if _, err := e.DecryptString("not-marked"); err == nil {
		t.Error("unmarked input decrypted")
	}
}
