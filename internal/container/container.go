// Package container frames the sequence of AEAD-sealed chunks that make
// up one encrypted file object on the storage backend. Each chunk is
// written as its nonce immediately followed by its ciphertext — no
// per-chunk length header — so the wire bytes are nothing more than
// nonce_0 || ciphertext_0 || nonce_1 || ciphertext_1 || ... Every nonce
// for a given suite has the same fixed size and every ciphertext but the
// last is exactly crypto.MaxChunkSize+crypto.TagSize bytes, which is
// enough to split the stream back into chunks on read. Framing lives
// here rather than in the engine or restore packages so both sides of
// the wire format share one implementation.
package container

import (
	"bytes"
	"io"

	"github.com/skylock/skylock/internal/crypto"
)

// WriteChunk appends one chunk's nonce followed by its ciphertext to w,
// with no length prefix of any kind.
func WriteChunk(w io.Writer, nonce, ciphertext []byte) error {
	if _, err := w.Write(nonce); err != nil {
		return err
	}
	_, err := w.Write(ciphertext)
	return err
}

// ReadChunk reads the next chunk from r: a nonceSize-byte nonce followed
// by a ciphertext window of up to crypto.MaxChunkSize+crypto.TagSize
// bytes. A ciphertext shorter than the full window is only valid for the
// last chunk in the stream, since every prior chunk sealed a full
// MaxChunkSize of plaintext. Returns io.EOF once r is exhausted cleanly
// between chunks.
func ReadChunk(r io.Reader, nonceSize int) (nonce, ciphertext []byte, err error) {
	nonce = make([]byte, nonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, nil, err
	}

	window := make([]byte, crypto.MaxChunkSize+crypto.TagSize)
	n, err := io.ReadFull(r, window)
	switch err {
	case nil:
		return nonce, window, nil
	case io.ErrUnexpectedEOF, io.EOF:
		if n == 0 {
			return nil, nil, io.ErrUnexpectedEOF
		}
		return nonce, window[:n], nil
	default:
		return nil, nil, err
	}
}

// Encrypt splits payload into at most crypto.MaxChunkSize plaintext
// chunks, seals each one under blockKey, and frames the result into a
// single byte stream suitable for upload as one object. An empty
// payload still produces one (empty) chunk so a zero-byte file round
// trips through encrypt/decrypt like any other.
func Encrypt(blockKey *crypto.SecretBytes, suite crypto.CipherSuite, aad, payload []byte) ([]byte, error) {
	var out bytes.Buffer
	off := 0
	for i := 0; ; i++ {
		end := off + crypto.MaxChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[off:end]
		nonce, ciphertext, err := crypto.EncryptChunk(blockKey, suite, i, aad, chunk)
		if err != nil {
			return nil, err
		}
		if err := WriteChunk(&out, nonce, ciphertext); err != nil {
			return nil, err
		}
		off = end
		if off >= len(payload) {
			break
		}
	}
	return out.Bytes(), nil
}

// Decrypt reverses Encrypt, verifying and opening every chunk in order.
func Decrypt(blockKey *crypto.SecretBytes, suite crypto.CipherSuite, aad, data []byte) ([]byte, error) {
	nonceSize, err := crypto.NonceSize(suite)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(data)
	var out bytes.Buffer
	for i := 0; ; i++ {
		nonce, ciphertext, err := ReadChunk(r, nonceSize)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		plaintext, err := crypto.DecryptChunk(blockKey, suite, nonce, aad, ciphertext)
		if err != nil {
			return nil, err
		}
		out.Write(plaintext)
	}
	return out.Bytes(), nil
}
