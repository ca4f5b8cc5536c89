// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaVersion is the version of the wire format.
const SchemaVersion = "1.0"

// DefaultIndent is the indentation of rendered documents.
const DefaultIndent = "  "

//go:embed callgraph.schema.json
var schemaJSON []byte

const schemaURL = "https://sinkgraph.aleutian.ai/schema/callgraph-1.0.json"

var (
	compiledSchema *jsonschema.Schema
	schemaOnce     sync.Once
	schemaErr      error
)

// Schema returns the embedded JSON Schema of the wire format.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parsing embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("adding embedded schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// Validate checks a rendered document against the wire-format schema.
//
// Outputs:
//   - error: ErrSchemaViolation wrapping the validator detail, or a decode
//     error when doc is not JSON.
func Validate(doc []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

// RenderOptions configures Render and WriteJSON.
type RenderOptions struct {
	// Indent is the per-level indentation. Empty renders compact JSON.
	Indent string

	// Validate checks the document against the schema before returning it.
	Validate bool
}

// Render encodes the graph in the wire format.
//
// Description:
//
//	Nodes are rendered as an object keyed by index in ascending numeric
//	order. The output ends with a newline.
//
// Outputs:
//   - []byte: The rendered document.
//   - error: A marshal error, or ErrSchemaViolation when validation is
//     requested and fails.
func Render(g *CallGraph, opts RenderOptions) ([]byte, error) {
	if g == nil {
		g = &CallGraph{}
	}
	var (
		data []byte
		err  error
	)
	if opts.Indent != "" {
		data, err = json.MarshalIndent(g, "", opts.Indent)
	} else {
		data, err = json.Marshal(g)
	}
	if err != nil {
		return nil, fmt.Errorf("marshaling call graph: %w", err)
	}
	if opts.Validate {
		if err := Validate(data); err != nil {
			return nil, err
		}
	}
	return append(data, '\n'), nil
}

// WriteJSON renders the graph and writes it to w.
func WriteJSON(w io.Writer, g *CallGraph, opts RenderOptions) error {
	data, err := Render(g, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing call graph: %w", err)
	}
	return nil
}

// ReadJSON decodes a graph in the wire format.
func ReadJSON(r io.Reader) (*CallGraph, error) {
	var g CallGraph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decoding call graph: %w", err)
	}
	return &g, nil
}
