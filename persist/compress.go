/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package persist

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const (
	flagRaw  byte = 0
	flagLz4  byte = 1
	minPack       = 512
)

// pack prefixes the payload with a compression flag and compresses large
// payloads with LZ4.
func pack(val []byte) []byte {
	if len(val) < minPack {
		return append([]byte{flagRaw}, val...)
	}

	var buf bytes.Buffer
	buf.WriteByte(flagLz4)

	w := lz4.NewWriter(&buf)

	if _, e := w.Write(val); e != nil {
		return append([]byte{flagRaw}, val...)
	}

	if e := w.Close(); e != nil {
		return append([]byte{flagRaw}, val...)
	}

	return buf.Bytes()
}

// unpack reverses pack.
func unpack(raw []byte) ([]byte, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("empty stored payload")
	}

	switch raw[0] {
	case flagRaw:
		return raw[1:], nil
	case flagLz4:
		r := lz4.NewReader(bytes.NewReader(raw[1:]))
		return io.ReadAll(r)
	}

	return nil, fmt.Errorf("unknown stored payload flag %d", raw[0])
}
