package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

const (
	// File and directory permissions
	dirPermissions  = 0755
	filePermissions = 0644

	snapshotMagic   uint32 = 0x4c434953 // "LCIS"
	snapshotVersion uint32 = 1
)

// snapshotHeader precedes the snappy-compressed JSON payload
type snapshotHeader struct {
	Magic    uint32
	Version  uint32
	Length   uint32 // compressed payload length
	Checksum uint32 // CRC32 (IEEE) of the compressed payload
}

type snapshotPayload struct {
	Name    string               `json:"name"`
	Records []*inventory.Process `json:"records"`
}

// SaveSnapshot writes the database to path. The file is written to a
// temporary name and renamed into place.
func (db *Database) SaveSnapshot(path string) error {
	payload := snapshotPayload{Name: db.name, Records: db.Records()}

	data, err := json.Marshal(payload)
	if err != nil {
		return NewError("save").Snapshot(path).Cause(fmt.Errorf("failed to marshal snapshot: %w", err)).Err()
	}
	compressed := snappy.Encode(nil, data)

	header := snapshotHeader{
		Magic:    snapshotMagic,
		Version:  snapshotVersion,
		Length:   uint32(len(compressed)),
		Checksum: crc32.ChecksumIEEE(compressed),
	}

	var buf bytes.Buffer
	buf.Grow(binary.Size(header) + len(compressed))
	if err := binary.Write(&buf, binary.BigEndian, header); err != nil {
		return NewError("save").Snapshot(path).Cause(err).Err()
	}
	buf.Write(compressed)

	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return NewError("save").Snapshot(path).Cause(fmt.Errorf("failed to create snapshot directory: %w", err)).Err()
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), filePermissions); err != nil {
		return NewError("save").Snapshot(path).Cause(fmt.Errorf("failed to write snapshot: %w", err)).Err()
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return NewError("save").Snapshot(path).Cause(fmt.Errorf("failed to rename snapshot: %w", err)).Err()
	}
	return nil
}

// LoadSnapshot reads a database written by SaveSnapshot
func LoadSnapshot(path string) (*Database, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, NewError("load").Snapshot(path).Cause(err).Err()
	}
	defer reader.Close()

	headerSize := binary.Size(snapshotHeader{})
	if reader.Len() < headerSize {
		return nil, NewError("load").Snapshot(path).Cause(fmt.Errorf("%w: truncated header", ErrCorruptSnapshot)).Err()
	}

	headerBuf := make([]byte, headerSize)
	if _, err := reader.ReadAt(headerBuf, 0); err != nil {
		return nil, NewError("load").Snapshot(path).Cause(err).Err()
	}

	var header snapshotHeader
	if err := binary.Read(bytes.NewReader(headerBuf), binary.BigEndian, &header); err != nil {
		return nil, NewError("load").Snapshot(path).Cause(err).Err()
	}
	if header.Magic != snapshotMagic {
		return nil, NewError("load").Snapshot(path).Cause(fmt.Errorf("%w: invalid magic %x", ErrCorruptSnapshot, header.Magic)).Err()
	}
	if header.Version != snapshotVersion {
		return nil, NewError("load").Snapshot(path).Cause(fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, header.Version)).Err()
	}
	if int64(reader.Len()-headerSize) != int64(header.Length) {
		return nil, NewError("load").Snapshot(path).Cause(fmt.Errorf("%w: expected %d payload bytes, found %d", ErrCorruptSnapshot, header.Length, reader.Len()-headerSize)).Err()
	}

	compressed := make([]byte, header.Length)
	if _, err := reader.ReadAt(compressed, int64(headerSize)); err != nil {
		return nil, NewError("load").Snapshot(path).Cause(err).Err()
	}
	if crc32.ChecksumIEEE(compressed) != header.Checksum {
		return nil, NewError("load").Snapshot(path).Cause(fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)).Err()
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, NewError("load").Snapshot(path).Cause(fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)).Err()
	}

	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, NewError("load").Snapshot(path).Cause(fmt.Errorf("failed to unmarshal snapshot: %w", err)).Err()
	}
	if payload.Name == "" {
		return nil, NewError("load").Snapshot(path).Cause(ErrInvalidName).Err()
	}

	return NewDatabase(payload.Name, payload.Records), nil
}
