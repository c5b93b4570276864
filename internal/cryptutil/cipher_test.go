package cryptutil

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	plaintext := []byte("E5 H")
	ciphertext := c.Encrypt(plaintext, 17)
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("ciphertext should differ from plaintext")
	}
	if len(ciphertext) != len(plaintext) {
		t.Errorf("len(ciphertext) = %d, want %d", len(ciphertext), len(plaintext))
	}

	decrypted := c.Decrypt(ciphertext, 17)
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
	}
}

func TestDecryptIsSelfInverse(t *testing.T) {
	c, _ := New(testKey())
	ciphertext := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	plain := c.Decrypt(ciphertext, 200)
	back := c.Encrypt(plain, 200)
	if !bytes.Equal(back, ciphertext) {
		t.Errorf("encrypt(decrypt(c)) = %x, want %x", back, ciphertext)
	}
}

func TestDifferentSequencesYieldDifferentKeystreams(t *testing.T) {
	c, _ := New(testKey())
	plaintext := []byte("same plaintext!!")
	a := c.Encrypt(plaintext, 1)
	b := c.Encrypt(plaintext, 2)
	if bytes.Equal(a, b) {
		t.Error("ciphertext should differ across sequence numbers")
	}
}

func TestNewRejectsBadKeySize(t *testing.T) {
	_, err := New([]byte{1, 2, 3})
	if err != ErrKeySize {
		t.Errorf("err = %v, want ErrKeySize", err)
	}
}

func TestEmptyPayload(t *testing.T) {
	c, _ := New(testKey())
	if out := c.Encrypt(nil, 3); out != nil {
		t.Errorf("Encrypt(nil) = %v, want nil", out)
	}
}
