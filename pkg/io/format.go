package io

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath returns the format matching the extension of path.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", cemerrors.New(cemerrors.ErrCodeInvalidFormat,
			"%s: unsupported extension (want .json or .toml)", filepath.Base(path))
	}
}

// ParseFormat parses "json" or "toml".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTOML:
		return f, nil
	default:
		return "", cemerrors.New(cemerrors.ErrCodeInvalidFormat, "unknown format %q", s)
	}
}

func decode(r io.Reader, f Format, v any) error {
	var err error
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(v)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(v)
	default:
		return cemerrors.New(cemerrors.ErrCodeInvalidFormat, "unknown format %q", f)
	}
	if err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidFormat, err, "decode %s", f)
	}
	return nil
}

func encode(w io.Writer, f Format, v any) error {
	var err error
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(v)
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(v)
	default:
		return cemerrors.New(cemerrors.ErrCodeInvalidFormat, "unknown format %q", f)
	}
	if err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidFormat, err, "encode %s", f)
	}
	return nil
}
