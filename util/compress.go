// util/compress.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"path"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var zstdDecoder *zstd.Decoder

func init() {
	var err error
	// A nil reader is fine since only DecodeAll is used; concurrent
	// DecodeAll calls are safe.
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic(err)
	}
}

// DecompressByName returns the contents of the named file, transparently
// decompressing them if the name ends in ".zst". The returned name has
// the compression suffix removed so that callers can dispatch on the
// underlying file type.
func DecompressByName(name string, b []byte) (string, []byte, error) {
	if path.Ext(name) != ".zst" {
		return name, b, nil
	}
	d, err := zstdDecoder.DecodeAll(b, nil)
	if err != nil {
		return name, nil, err
	}
	return strings.TrimSuffix(name, ".zst"), d, nil
}
