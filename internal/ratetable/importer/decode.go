// Package importer reads administrator-authored rate table documents and
// publishes them through the rate table service.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported_document_format")

// Extensions are the file suffixes the importer understands.
var Extensions = []string{".yaml", ".yml", ".json", ".xlsx"}

func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ParseFormat maps a content type or short name onto a Format.
func ParseFormat(value string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if i := strings.Index(v, ";"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	switch v {
	case "yaml", "yml", "application/yaml", "application/x-yaml", "text/yaml":
		return FormatYAML, nil
	case "", "json", "application/json":
		return FormatJSON, nil
	case "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, value)
	}
}

func Decode(r io.Reader, format Format) (*domain.Document, error) {
	switch format {
	case FormatYAML:
		var doc domain.Document
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
		}
		return &doc, nil
	case FormatJSON:
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		var doc domain.Document
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
		}
		return &doc, nil
	case FormatXLSX:
		return decodeXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func DecodeFile(path string) (*domain.Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}
