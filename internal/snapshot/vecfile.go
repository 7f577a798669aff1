// Package snapshot persists and reloads reference stores as a vector file plus SQLite metadata.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
)

const (
	vectorMagic   = "BGVEC"
	formatVersion = uint16(1)
	// maxVersionLen bounds the snapshot version header read from disk.
	maxVersionLen = 256
)

// VectorFile is the decoded content of a vector file.
type VectorFile struct {
	Version    string
	Dimensions int
	IDs        []int
	Vectors    [][]float32
}

// WriteVectorFile writes ids and vectors to path through a temp file renamed into place.
// Layout (little endian): magic, format u16, version len u16, version, dims u32, n u32,
// then n records of id u32 and dims float32, then a CRC-32 of everything before it.
func WriteVectorFile(path, version string, dims int, ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	if len(version) > maxVersionLen {
		return fmt.Errorf("snapshot version too long: %d bytes", len(version))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create vectors directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	crc := crc32.NewIEEE()
	w := bufio.NewWriter(io.MultiWriter(tmp, crc))
	put := func(v any) error { return binary.Write(w, binary.LittleEndian, v) }

	if _, err := w.WriteString(vectorMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := put(formatVersion); err != nil {
		return fmt.Errorf("write format version: %w", err)
	}
	if err := put(uint16(len(version))); err != nil {
		return fmt.Errorf("write version len: %w", err)
	}
	if _, err := w.WriteString(version); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := put(uint32(dims)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := put(uint32(len(ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range ids {
		if len(vectors[i]) != dims {
			return fmt.Errorf("vector %d has %d dimensions, want %d", id, len(vectors[i]), dims)
		}
		if err := put(uint32(id)); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := binary.Write(tmp, binary.LittleEndian, crc.Sum32()); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// ReadVectorFile decodes a vector file, verifying magic, format and checksum.
func ReadVectorFile(path string) (*VectorFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < len(vectorMagic)+4 {
		return nil, errors.New("vector file truncated")
	}
	body, tail := data[:len(data)-4], data[len(data)-4:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(tail) {
		return nil, errors.New("vector file checksum mismatch")
	}

	r := bytes.NewReader(body)
	magic := make([]byte, len(vectorMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != vectorMagic {
		return nil, errors.New("not a vector file")
	}
	var format, versionLen uint16
	if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
		return nil, fmt.Errorf("read format version: %w", err)
	}
	if format != formatVersion {
		return nil, fmt.Errorf("unsupported vector file format %d", format)
	}
	if err := binary.Read(r, binary.LittleEndian, &versionLen); err != nil {
		return nil, fmt.Errorf("read version len: %w", err)
	}
	if versionLen > maxVersionLen {
		return nil, fmt.Errorf("version header too long: %d", versionLen)
	}
	version := make([]byte, versionLen)
	if _, err := io.ReadFull(r, version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if dim == 0 {
		return nil, errors.New("vector file has zero dimensions")
	}
	record := 4 + 4*int64(dim)
	if int64(r.Len()) != int64(n)*record {
		return nil, fmt.Errorf("vector file holds %d bytes of records, want %d", r.Len(), int64(n)*record)
	}

	out := &VectorFile{
		Version:    string(version),
		Dimensions: int(dim),
		IDs:        make([]int, n),
		Vectors:    make([][]float32, n),
	}
	buf := make([]byte, 4*int(dim))
	for i := range out.IDs {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		out.IDs[i] = int(id)
		out.Vectors[i] = bytesToFloat32Slice(buf)
	}
	return out, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
