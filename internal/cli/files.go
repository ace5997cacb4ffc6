package cli

import (
	"os"
	"path/filepath"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	cemio "github.com/matzehuels/cem/pkg/io"
)

// readDoc decodes the JSON or TOML file at path into v. A path of "-"
// reads JSON from stdin.
func readDoc(path string, v any) error {
	if path == "-" {
		return cemio.Read(os.Stdin, cemio.FormatJSON, v)
	}
	format, err := cemio.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cemerrors.Wrap(cemerrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	if err := cemio.Read(f, format, v); err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidFormat, err, "%s", path)
	}
	return nil
}

// writeDoc encodes v into path in the format of its extension. A path of
// "-" writes JSON to stdout.
func writeDoc(path string, v any) error {
	if path == "-" {
		return cemio.Write(os.Stdout, cemio.FormatJSON, v)
	}
	if err := cemerrors.ValidatePath(path); err != nil {
		return err
	}
	if err := cemerrors.ValidateFilename(filepath.Base(path), ".json", ".toml"); err != nil {
		return err
	}
	format, err := cemio.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := cemio.Write(f, format, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeArtifact writes rendered bytes to path, or to stdout for "-".
func writeArtifact(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := cemerrors.ValidatePath(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}
