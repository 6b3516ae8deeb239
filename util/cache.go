// util/cache.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"compress/flate"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/minio/highwayhash"
	"github.com/vmihailenco/msgpack/v5"
)

var cacheKeySeed = []byte("0123456789ABCDEF0123456789ABCDEF")

// CacheKey maps an arbitrary string, such as a URL, to a fixed-length
// name that is safe to use as a file name.
func CacheKey(s string) string {
	h, err := highwayhash.New64(cacheKeySeed)
	if err != nil {
		// Only possible with a key that isn't 32 bytes.
		panic(err)
	}
	h.Write([]byte(s))
	return strconv.FormatUint(h.Sum64(), 16)
}

// DefaultCacheDir returns the directory used for cached objects when none
// is specified.
func DefaultCacheDir() (string, error) {
	cd, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cd, "perfchart"), nil
}

// CacheStoreObject writes obj to dir, msgpack-encoded and compressed,
// under a name derived from key.
func CacheStoreObject(dir, key string, obj any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Write to a temporary file first so that concurrent readers never
	// see a partial object.
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	fw, err := flate.NewWriter(f, flate.BestSpeed)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(fw).Encode(obj); err != nil {
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), filepath.Join(dir, CacheKey(key)))
}

// CacheRetrieveObject decodes the object stored under key into obj,
// returning the time it was stored.
func CacheRetrieveObject(dir, key string, obj any) (time.Time, error) {
	f, err := os.Open(filepath.Join(dir, CacheKey(key)))
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}

	fr := flate.NewReader(f)
	defer fr.Close()

	return fi.ModTime(), msgpack.NewDecoder(fr).Decode(obj)
}
