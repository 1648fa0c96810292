// Package crypt implements the symmetric encryption layer of the remote
// connection: a PBKDF2-derived Triple-DES key applied in CBC mode with
// PKCS#7 padding. All parameters (salt, iteration count, key length, the
// all-zero IV) are fixed by the peer; both endpoints must use identical
// values or decryption yields garbage with no integrity error.
package crypt

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/sha1"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters mandated by the peer.
const (
	iterations = 1000
	keyLength  = 24
)

var salt = []byte("Adobe Photoshop")

// The IV is always zero. Known weakness, but a protocol constant:
// the peer decrypts every frame with the same zero IV.
var zeroIV = make([]byte, des.BlockSize)

var (
	ErrCiphertextLength = errors.New("crypt: ciphertext is not a multiple of the block size")
	ErrBadPadding       = errors.New("crypt: invalid PKCS#7 padding")
)

// DeriveKey derives the 24-byte Triple-DES key from the connection password
// via PBKDF2-HMAC-SHA1 with the fixed salt and iteration count.
func DeriveKey(password []byte) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLength, sha1.New)
}

// Cipher encrypts and decrypts frame payloads. Safe for concurrent use:
// every call builds a fresh CBC stream over the shared block cipher.
type Cipher struct {
	block cipher.Block
}

// New derives the key from password and returns a ready Cipher.
func New(password []byte) (*Cipher, error) {
	block, err := des.NewTripleDESCipher(DeriveKey(password))
	if err != nil {
		return nil, err
	}
	return &Cipher{block: block}, nil
}

// Encrypt pads plaintext to the block size and encrypts it with 3DES-CBC.
func (c *Cipher) Encrypt(plaintext []byte) []byte {
	padded := pad(plaintext, des.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, zeroIV).CryptBlocks(out, padded)
	return out
}

// Decrypt decrypts ciphertext and strips the PKCS#7 padding.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%des.BlockSize != 0 {
		return nil, ErrCiphertextLength
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, zeroIV).CryptBlocks(padded, ciphertext)
	return unpad(padded, des.BlockSize)
}

// pad appends PKCS#7 padding up to the next blockSize boundary.
// Input that is already block-aligned gains a full padding block.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad validates and strips PKCS#7 padding.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrBadPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-n], nil
}
