package io

import (
	"io"
	"os"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/form"
	"github.com/matzehuels/cem/pkg/topology"
)

// ReadTopology decodes a [TopologyDoc] from r and returns the topology with
// its trails built.
//
// ReadTopology returns an INVALID_FORMAT error if the document is malformed
// and a TOPOLOGY error if it describes an invalid graph (duplicate nodes,
// unknown endpoints, self loops) or cannot be decomposed into trails. The
// wrapped sentinel errors of package topology stay reachable through
// errors.Is. ReadTopology does not close r.
func ReadTopology(r io.Reader, f Format) (*topology.Diagram, error) {
	var doc TopologyDoc
	if err := decode(r, f, &doc); err != nil {
		return nil, err
	}
	return doc.Diagram()
}

// ImportTopology reads the topology file at path. The format follows the
// file extension.
func ImportTopology(path string) (*topology.Diagram, error) {
	var doc TopologyDoc
	if err := importFile(path, &doc); err != nil {
		return nil, err
	}
	return doc.Diagram()
}

// ReadForm decodes a form diagram from r.
func ReadForm(r io.Reader, f Format) (*form.Diagram, error) {
	var doc FormDoc
	if err := decode(r, f, &doc); err != nil {
		return nil, err
	}
	return doc.Diagram()
}

// ImportForm reads the form file at path.
func ImportForm(path string) (*form.Diagram, error) {
	var doc FormDoc
	if err := importFile(path, &doc); err != nil {
		return nil, err
	}
	return doc.Diagram()
}

// ReadOptimizeRequest decodes an optimization problem from r.
func ReadOptimizeRequest(r io.Reader, f Format) (OptimizeRequest, error) {
	var req OptimizeRequest
	err := decode(r, f, &req)
	return req, err
}

// ImportOptimizeRequest reads the optimization problem file at path.
func ImportOptimizeRequest(path string) (OptimizeRequest, error) {
	var req OptimizeRequest
	err := importFile(path, &req)
	return req, err
}

// ReadResult decodes an optimization result from r.
func ReadResult(r io.Reader, f Format) (ResultDoc, error) {
	var doc ResultDoc
	err := decode(r, f, &doc)
	return doc, err
}

func importFile(path string, v any) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cemerrors.Wrap(cemerrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer file.Close()
	if err := decode(file, f, v); err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidFormat, err, "%s", path)
	}
	return nil
}
