package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Magic opens every bitstream file.
var Magic = [4]byte{'B', 'C', 0xC0, 0xDE}

// StdStream is the path sentinel for standard input or output.
const StdStream = "-"

const (
	headerSize   = 12 // magic + version + payload length
	checksumSize = sha256.Size
)

// ErrMalformed is wrapped by every Decode failure.
var ErrMalformed = errors.New("malformed bitstream")

// Encode writes m to w in the bitstream format:
//
//	magic[4] version[4, BE] length[4, BE] payload[length] sha256(payload)[32]
func Encode(w io.Writer, m *Module) error {
	payload, err := CanonicalPayload(m)
	if err != nil {
		return fmt.Errorf("encode module %q: %w", m.Name, err)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("encode module %q: payload too large (%d bytes)", m.Name, len(payload))
	}

	var header [headerSize]byte
	copy(header[:4], Magic[:])
	binary.BigEndian.PutUint32(header[4:8], FormatVersion)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(payload)))
	sum := sha256.Sum256(payload)

	for _, chunk := range [][]byte{header[:], payload, sum[:]} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("encode module %q: %w", m.Name, err)
		}
	}
	return nil
}

// Marshal returns the bitstream encoding of m.
func Marshal(m *Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads exactly one module from r. Any structural problem with the
// envelope or the payload returns an error wrapping ErrMalformed.
func Decode(r io.Reader) (*Module, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, malformed("truncated header: %v", err)
	}
	if !bytes.Equal(header[:4], Magic[:]) {
		return nil, malformed("bad magic % x", header[:4])
	}
	if v := binary.BigEndian.Uint32(header[4:8]); v != FormatVersion {
		return nil, malformed("unsupported format version %d", v)
	}

	// The length is untrusted; read through a limit instead of allocating it.
	n := binary.BigEndian.Uint32(header[8:12])
	payload, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, malformed("reading payload: %v", err)
	}
	if len(payload) != int(n) {
		return nil, malformed("truncated payload: want %d bytes, got %d", n, len(payload))
	}
	var sum [checksumSize]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return nil, malformed("truncated checksum: %v", err)
	}
	if want := sha256.Sum256(payload); sum != want {
		return nil, malformed("checksum mismatch")
	}

	var trailing [1]byte
	if k, _ := r.Read(trailing[:]); k > 0 {
		return nil, malformed("trailing data after checksum")
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	var m Module
	if err := dec.Decode(&m); err != nil {
		return nil, malformed("payload: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("trailing payload data")
	}
	if m.Name == "" {
		return nil, malformed("payload: module has no name")
	}
	return &m, nil
}

// Unmarshal decodes a module from data.
func Unmarshal(data []byte) (*Module, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile loads a module from path. StdStream reads standard input.
func ReadFile(path string) (*Module, error) {
	if path == StdStream {
		return Decode(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// WriteFile writes m to path directly. It is not interrupt safe; the
// transformation pipeline uses its own atomic writer.
func WriteFile(path string, m *Module) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
