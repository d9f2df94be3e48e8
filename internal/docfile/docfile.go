// Package docfile reads and writes board documents as JSON or YAML files.
package docfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/model"
)

// FormatVersion is written into every saved board.
const FormatVersion = 1

// ErrFormat reports an unsupported file extension or board version.
var ErrFormat = errors.New("unsupported board format")

// Board is the on-disk form of a board.
type Board struct {
	Version int            `json:"version" yaml:"version"`
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Objects []model.Object `json:"objects" yaml:"objects"`
}

// Store builds a document store holding the board's objects.
func (b Board) Store() (*document.Store, error) {
	return document.New(b.Objects)
}

// FromView captures every object of v, parents before children.
func FromView(name string, v document.View) Board {
	return Board{Version: FormatVersion, Name: name, Objects: ordered(v)}
}

// ordered emits containers top-down so a reader can insert objects one by one.
func ordered(v document.View) []model.Object {
	out := make([]model.Object, 0, len(v.IDs()))
	seen := make(map[string]bool, len(v.IDs()))
	var visit func(parentID string)
	visit = func(parentID string) {
		for _, id := range v.Children(parentID) {
			if seen[id] {
				continue
			}
			obj, ok := v.Object(id)
			if !ok {
				continue
			}
			seen[id] = true
			out = append(out, obj)
			if obj.Type == model.TypeContainer {
				visit(id)
			}
		}
	}
	visit("")
	for _, id := range v.IDs() {
		if seen[id] {
			continue
		}
		if obj, ok := v.Object(id); ok {
			out = append(out, obj)
		}
	}
	return out
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("%s: %w", path, ErrFormat)
}

// IsBoardFile reports whether path has a board extension.
func IsBoardFile(path string) bool {
	_, err := formatOf(path)
	return err == nil
}

// Decode parses data in the format implied by path's extension.
func Decode(path string, data []byte) (Board, error) {
	var b Board
	f, err := formatOf(path)
	if err != nil {
		return b, err
	}
	switch f {
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&b)
	case formatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&b)
	}
	if err != nil {
		return b, fmt.Errorf("decoding %s: %w", path, err)
	}
	if b.Version == 0 {
		b.Version = FormatVersion
	}
	if b.Version != FormatVersion {
		return b, fmt.Errorf("%s: version %d: %w", path, b.Version, ErrFormat)
	}
	return b, nil
}

// Encode serializes b in the format implied by path's extension.
func Encode(path string, b Board) ([]byte, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	if b.Version == 0 {
		b.Version = FormatVersion
	}
	if b.Objects == nil {
		b.Objects = []model.Object{}
	}
	switch f {
	case formatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", path, err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", path, err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", path, err)
		}
		return append(data, '\n'), nil
	}
}

// Load reads a board file. The returned hash identifies its content.
func Load(path string) (Board, uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, 0, fmt.Errorf("reading board: %w", err)
	}
	b, err := Decode(path, data)
	if err != nil {
		return Board{}, 0, err
	}
	if b.Name == "" {
		b.Name = NameOf(path)
	}
	return b, Hash(data), nil
}

// Save writes b to path atomically and returns the content hash written.
func Save(path string, b Board) (uint64, error) {
	data, err := Encode(path, b)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating board dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("creating temp board: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("writing board: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing board: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("replacing board: %w", err)
	}
	return Hash(data), nil
}

// Hash fingerprints board file content.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// NameOf derives a board name from its file name.
func NameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
