package io

import (
	"io"
	"os"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/form"
	"github.com/matzehuels/cem/pkg/topology"
)

// WriteTopology encodes d and writes it to w. The output can be read back
// with [ReadTopology].
func WriteTopology(d *topology.Diagram, w io.Writer, f Format) error {
	return encode(w, f, EncodeTopology(d))
}

// ExportTopology writes d to a file at path in the format of its extension.
func ExportTopology(d *topology.Diagram, path string) error {
	return exportFile(path, EncodeTopology(d))
}

// WriteForm encodes f and writes it to w.
func WriteForm(d *form.Diagram, w io.Writer, f Format) error {
	return encode(w, f, EncodeForm(d))
}

// ExportForm writes d to a file at path in the format of its extension.
func ExportForm(d *form.Diagram, path string) error {
	return exportFile(path, EncodeForm(d))
}

// Write encodes any document of this package.
func Write(w io.Writer, f Format, doc any) error { return encode(w, f, doc) }

// Read decodes any document of this package.
func Read(r io.Reader, f Format, doc any) error { return decode(r, f, doc) }

func exportFile(path string, v any) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := encode(file, f, v); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
