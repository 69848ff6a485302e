// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package periph

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/pkg/errors"
)

// aes256CBCDecrypt decrypts src into dst with AES-256 in CBC mode. src must be
// a whole number of blocks and dst at least as large as src.
//
func aes256CBCDecrypt(key, iv, dst, src []byte) error {
	if len(key) != 32 {
		return errors.Errorf("AES-256 key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return errors.Errorf("bad IV size %d", len(iv))
	}
	if len(src)%aes.BlockSize != 0 || len(dst) < len(src) {
		return errors.Errorf("bad buffer sizes: src %d, dst %d", len(src), len(dst))
	}
	b, err := aes.NewCipher(key)
	if err != nil {
		return errors.Wrap(err, "AES-256")
	}
	cipher.NewCBCDecrypter(b, iv).CryptBlocks(dst, src)
	return nil
}
