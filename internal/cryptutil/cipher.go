// Package cryptutil implements the confidentiality layer over Framer
// payloads: a counter-mode stream cipher keyed by a pre-shared 256-bit
// secret, with the 128-bit nonce for sequence s derived deterministically
// from s so no explicit IV needs to travel on the wire.
//
// This is confidentiality only. The Framer's checksum (internal/wire)
// detects accidental corruption, not tampering; an adversary that can
// modify ciphertext in flight is out of scope (see spec §9).
package cryptutil

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// KeySize is the required pre-shared key length in bytes (256 bits).
const KeySize = 32

// nonceSize matches the AES block size so crypto/cipher.NewCTR accepts
// it directly as the IV.
const nonceSize = aes.BlockSize

// ErrKeySize is returned when a key of the wrong length is supplied.
var ErrKeySize = errors.New("cryptutil: key must be 32 bytes")

// Cipher encrypts/decrypts packet payloads under a single pre-shared key.
type Cipher struct {
	block cipher.Block
}

// New constructs a Cipher from a 256-bit pre-shared key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{block: block}, nil
}

// nonceFor builds the 16-byte big-endian nonce for sequence s: the
// last byte is s, the rest are zero.
func nonceFor(seq uint8) [nonceSize]byte {
	var nonce [nonceSize]byte
	nonce[nonceSize-1] = seq
	return nonce
}

// Encrypt returns the ciphertext for plaintext under the packet's
// sequence number. The result has identical length to plaintext.
func (c *Cipher) Encrypt(plaintext []byte, seq uint8) []byte {
	return c.xor(plaintext, seq)
}

// Decrypt is symmetric with Encrypt: the same counter-mode keystream
// XORed against ciphertext recovers plaintext.
func (c *Cipher) Decrypt(ciphertext []byte, seq uint8) []byte {
	return c.xor(ciphertext, seq)
}

func (c *Cipher) xor(in []byte, seq uint8) []byte {
	if len(in) == 0 {
		return nil
	}
	nonce := nonceFor(seq)
	stream := cipher.NewCTR(c.block, nonce[:])
	out := make([]byte, len(in))
	stream.XORKeyStream(out, in)
	return out
}
