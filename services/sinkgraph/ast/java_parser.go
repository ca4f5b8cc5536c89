// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// JavaParserOption configures a JavaParser instance.
type JavaParserOption func(*JavaParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Non-positive values are ignored.
func WithMaxFileSize(bytes int64) JavaParserOption {
	return func(p *JavaParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithParserLogger sets the logger used for parse diagnostics.
func WithParserLogger(logger *slog.Logger) JavaParserOption {
	return func(p *JavaParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// JavaParser extracts declarations and call sites from Java source.
//
// Description:
//
//	JavaParser uses tree-sitter to parse Java source files into a FileUnit.
//	Parsing is error-tolerant: a file with isolated syntax errors still yields
//	every declaration that parsed successfully. Each Parse call creates its own
//	tree-sitter parser instance.
//
// Thread Safety:
//
//	JavaParser instances are safe for concurrent use.
type JavaParser struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewJavaParser creates a JavaParser with the given options.
//
// Inputs:
//   - opts: Optional configuration functions (WithMaxFileSize, WithParserLogger)
//
// Outputs:
//   - *JavaParser: Configured parser instance, never nil
func NewJavaParser(opts ...JavaParserOption) *JavaParser {
	p := &JavaParser{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses a file from disk.
func (p *JavaParser) ParseFile(ctx context.Context, path string) (*FileUnit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidContent, path)
	}
	if info.Size() > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, info.Size(), p.maxFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return p.Parse(ctx, content, path)
}

// Parse extracts declarations and call sites from Java source code.
//
// Description:
//
//	Parses the content with tree-sitter and walks the syntax tree once,
//	recording types, members, locals and call sites. Call-site references
//	are left unresolved; BuildModel resolves them against the combined model.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw Java source bytes. Must be valid UTF-8.
//   - filePath: Path recorded in the unit and in every position.
//
// Outputs:
//   - *FileUnit: Extracted declarations. Never nil on success.
//   - error: ErrFileTooLarge, ErrInvalidContent, or a context error.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *JavaParser) Parse(ctx context.Context, content []byte, filePath string) (*FileUnit, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		p.logger.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	hash := sha256.Sum256(content)

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	unit := &FileUnit{
		Path: filePath,
		Hash: hex.EncodeToString(hash[:]),
	}

	root := tree.RootNode()
	if root == nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("%w: tree-sitter returned nil root node", ErrInvalidContent)
	}
	if root.HasError() {
		unit.Errors = append(unit.Errors, "source contains syntax errors")
	}

	x := &extractor{
		content: content,
		unit:    unit,
		anon:    make(map[*TypeDecl]int),
		local:   make(map[string]int),
		sites:   make(map[siteKey]*CallSite),
	}
	x.walkProgram(root)

	if err := ctx.Err(); err != nil {
		recordParseMetrics(time.Since(start), false)
		return nil, fmt.Errorf("parse canceled after extraction: %w", err)
	}

	setParseSpanResult(span, len(unit.Types), len(unit.Executables), len(x.sites))
	recordParseMetrics(time.Since(start), true)

	return unit, nil
}

// DeclaredTypes returns the top-level type names declared by a file.
//
// Description:
//
//	Performs an isolated parse of the file alone. Used to detect files whose
//	types were already contributed by another input path.
//
// Outputs:
//   - []string: Fully-qualified top-level type names in source order.
//   - error: Non-nil when the file cannot be read or parsed.
func (p *JavaParser) DeclaredTypes(ctx context.Context, path string) ([]string, error) {
	unit, err := p.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return unit.TopLevelTypes(), nil
}

// siteKey identifies a syntax node within one file.
type siteKey struct {
	start, end uint32
	kind       string
}

// scope is the lexical context of the walk.
type scope struct {
	typ   *TypeDecl
	execs []*Executable
}

func (s scope) inner() *Executable {
	if len(s.execs) == 0 {
		return nil
	}
	return s.execs[len(s.execs)-1]
}

func (s scope) enter(e *Executable) scope {
	execs := make([]*Executable, len(s.execs), len(s.execs)+1)
	copy(execs, s.execs)
	return scope{typ: s.typ, execs: append(execs, e)}
}

// extractor walks one syntax tree.
type extractor struct {
	content []byte
	unit    *FileUnit
	anon    map[*TypeDecl]int
	local   map[string]int
	sites   map[siteKey]*CallSite
}

func (x *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(x.content[n.StartByte():n.EndByte()])
}

func isComment(kind string) bool {
	return kind == "comment" || kind == "line_comment" || kind == "block_comment"
}

func (x *extractor) walkProgram(root *sitter.Node) {
	top := scope{}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			x.unit.Package = x.packageName(child)
		case "import_declaration":
			x.unit.Imports = append(x.unit.Imports, x.importDecl(child))
		default:
			x.walk(child, top)
		}
	}
}

func (x *extractor) packageName(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return x.text(c)
		}
	}
	return ""
}

func (x *extractor) importDecl(n *sitter.Node) Import {
	imp := Import{}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "static":
			imp.Static = true
		case "asterisk":
			imp.OnDemand = true
		case "scoped_identifier", "identifier":
			imp.Path = x.text(c)
		}
	}
	return imp
}

// walk visits n and its descendants, recording declarations and call sites.
func (x *extractor) walk(n *sitter.Node, sc scope) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		x.declareType(n, sc)
		return
	case "method_declaration", "annotation_type_element_declaration":
		x.declareMethod(n, sc)
		return
	case "constructor_declaration", "compact_constructor_declaration":
		x.declareConstructor(n, sc)
		return
	case "local_variable_declaration":
		x.declareLocals(n, sc)
	case "enhanced_for_statement":
		x.declareLocal(sc, n.ChildByFieldName("name"),
			x.withDims(x.typeRef(n.ChildByFieldName("type")), n.ChildByFieldName("dimensions")),
			n.StartByte(), n.EndByte())
	case "catch_formal_parameter":
		x.declareCatchParam(n, sc)
	case "resource":
		if name := n.ChildByFieldName("name"); name != nil {
			x.declareLocal(sc, name, x.typeRef(n.ChildByFieldName("type")), n.StartByte(), enclosingEnd(n))
		}
	case "instanceof_expression":
		x.declarePattern(n, sc)
	case "lambda_expression":
		x.declareLambdaParams(n, sc)
	case "method_invocation", "object_creation_expression", "explicit_constructor_invocation":
		x.visitSite(n, sc)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		x.walk(n.NamedChild(i), sc)
	}
}

func (x *extractor) visitSite(n *sitter.Node, sc scope) {
	site := x.site(n, sc)
	for _, e := range sc.execs {
		e.Sites = append(e.Sites, site)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "class_body" && n.Type() == "object_creation_expression" {
			x.declareAnonymous(c, site, sc)
			continue
		}
		x.walk(c, sc)
	}
}

var typeKinds = map[string]TypeKind{
	"class_declaration":           TypeKindClass,
	"interface_declaration":       TypeKindInterface,
	"enum_declaration":            TypeKindEnum,
	"record_declaration":          TypeKindRecord,
	"annotation_type_declaration": TypeKindAnnotation,
}

// isMemberContainer reports whether a node kind holds type members.
func isMemberContainer(kind string) bool {
	switch kind {
	case "program", "class_body", "interface_body", "enum_body",
		"enum_body_declarations", "annotation_type_body":
		return true
	}
	return false
}

func (x *extractor) declareType(n *sitter.Node, sc scope) {
	name := x.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	td := &TypeDecl{
		Name:     name,
		Kind:     typeKinds[n.Type()],
		Outer:    sc.typ,
		File:     x.unit,
		Position: positionOf(n, x.unit.Path),
	}

	parent := n.Parent()
	td.Local = sc.inner() != nil && parent != nil && !isMemberContainer(parent.Type())

	switch {
	case sc.typ == nil:
		td.QualifiedName = qualify(x.unit.Package, name)
	case td.Local:
		key := sc.typ.QualifiedName + "$" + name
		x.local[key]++
		td.QualifiedName = sc.typ.QualifiedName + "$" + strconv.Itoa(x.local[key]) + name
		td.EnclosingExec = sc.inner()
	default:
		td.QualifiedName = sc.typ.QualifiedName + "$" + name
	}
	if sc.typ != nil {
		sc.typ.Nested = append(sc.typ.Nested, td)
	}

	td.TypeParams = x.typeParams(n.ChildByFieldName("type_parameters"))
	if sup := n.ChildByFieldName("superclass"); sup != nil && sup.NamedChildCount() > 0 {
		td.Superclass = x.typeRef(sup.NamedChild(0))
	}
	td.Interfaces = x.interfaces(n)

	x.unit.Types = append(x.unit.Types, td)

	inner := scope{typ: td, execs: sc.execs}
	if n.Type() == "record_declaration" {
		x.recordComponents(n.ChildByFieldName("parameters"), td)
	}
	x.walkMembers(n.ChildByFieldName("body"), inner)
}

func (x *extractor) declareAnonymous(body *sitter.Node, site *CallSite, sc scope) {
	outer := sc.typ
	if outer == nil {
		return
	}
	x.anon[outer]++
	td := &TypeDecl{
		QualifiedName: outer.QualifiedName + "$" + strconv.Itoa(x.anon[outer]),
		Kind:          TypeKindClass,
		Outer:         outer,
		EnclosingExec: sc.inner(),
		File:          x.unit,
		Superclass:    site.Created,
		Anonymous:     true,
		Position:      positionOf(body, x.unit.Path),
	}
	site.Anonymous = td
	x.unit.Types = append(x.unit.Types, td)
	x.walkMembers(body, scope{typ: td, execs: sc.execs})
}

// walkMembers visits the members of a type body.
func (x *extractor) walkMembers(body *sitter.Node, sc scope) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "field_declaration", "constant_declaration":
			x.declareFields(c, sc)
		case "enum_constant":
			x.declareEnumConstant(c, sc)
		case "enum_body_declarations":
			x.walkMembers(c, sc)
		default:
			x.walk(c, sc)
		}
	}
}

func (x *extractor) declareEnumConstant(n *sitter.Node, sc scope) {
	td := sc.typ
	if name := n.ChildByFieldName("name"); name != nil {
		td.Fields = append(td.Fields, &Variable{Name: x.text(name), Type: TypeRef{Name: td.Name}})
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "class_body" {
			x.anon[td]++
			anon := &TypeDecl{
				QualifiedName: td.QualifiedName + "$" + strconv.Itoa(x.anon[td]),
				Kind:          TypeKindClass,
				Outer:         td,
				File:          x.unit,
				Superclass:    TypeRef{Name: td.Name},
				Anonymous:     true,
				Position:      positionOf(c, x.unit.Path),
			}
			x.unit.Types = append(x.unit.Types, anon)
			x.walkMembers(c, scope{typ: anon, execs: sc.execs})
			continue
		}
		x.walk(c, sc)
	}
}

func (x *extractor) declareFields(n *sitter.Node, sc scope) {
	t := x.typeRef(n.ChildByFieldName("type"))
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "variable_declarator" {
			continue
		}
		v := &Variable{
			Name: x.text(c.ChildByFieldName("name")),
			Type: x.withDims(t, c.ChildByFieldName("dimensions")),
		}
		if value := c.ChildByFieldName("value"); value != nil {
			v.Init = x.expr(value, sc)
			x.walk(value, sc)
		}
		sc.typ.Fields = append(sc.typ.Fields, v)
	}
}

func (x *extractor) recordComponents(params *sitter.Node, td *TypeDecl) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		c := params.NamedChild(i)
		if c.Type() != "formal_parameter" {
			continue
		}
		td.Fields = append(td.Fields, &Variable{
			Name: x.text(c.ChildByFieldName("name")),
			Type: x.withDims(x.typeRef(c.ChildByFieldName("type")), c.ChildByFieldName("dimensions")),
		})
	}
}

func (x *extractor) declareMethod(n *sitter.Node, sc scope) {
	if sc.typ == nil {
		return
	}
	ex := &Executable{
		Name:       x.text(n.ChildByFieldName("name")),
		Owner:      sc.typ,
		ReturnType: x.withDims(x.typeRef(n.ChildByFieldName("type")), n.ChildByFieldName("dimensions")),
		TypeParams: x.typeParams(n.ChildByFieldName("type_parameters")),
		Parent:     sc.inner(),
		Position:   positionOf(n, x.unit.Path),
	}
	if ex.Name == "" {
		return
	}
	x.params(n.ChildByFieldName("parameters"), ex)
	sc.typ.Methods = append(sc.typ.Methods, ex)
	x.unit.Executables = append(x.unit.Executables, ex)

	if body := n.ChildByFieldName("body"); body != nil {
		x.walk(body, sc.enter(ex))
	}
}

func (x *extractor) declareConstructor(n *sitter.Node, sc scope) {
	if sc.typ == nil {
		return
	}
	ex := &Executable{
		Name:        ConstructorName,
		Constructor: true,
		Owner:       sc.typ,
		TypeParams:  x.typeParams(n.ChildByFieldName("type_parameters")),
		Parent:      sc.inner(),
		Position:    positionOf(n, x.unit.Path),
	}
	if n.Type() == "compact_constructor_declaration" {
		for _, f := range sc.typ.Fields {
			ex.Params = append(ex.Params, &Variable{Name: f.Name, Type: f.Type})
		}
	} else {
		x.params(n.ChildByFieldName("parameters"), ex)
	}
	sc.typ.Constructors = append(sc.typ.Constructors, ex)
	x.unit.Executables = append(x.unit.Executables, ex)

	if body := n.ChildByFieldName("body"); body != nil {
		x.walk(body, sc.enter(ex))
	}
}

func (x *extractor) params(n *sitter.Node, ex *Executable) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "formal_parameter":
			ex.Params = append(ex.Params, &Variable{
				Name: x.text(c.ChildByFieldName("name")),
				Type: x.withDims(x.typeRef(c.ChildByFieldName("type")), c.ChildByFieldName("dimensions")),
			})
		case "spread_parameter":
			ex.Params = append(ex.Params, x.spreadParam(c))
			ex.Varargs = true
		}
	}
}

// spreadParam reads a varargs parameter as an array-typed parameter.
func (x *extractor) spreadParam(n *sitter.Node) *Variable {
	v := &Variable{}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "modifiers", "annotation", "marker_annotation":
		case "variable_declarator":
			v.Name = x.text(c.ChildByFieldName("name"))
			v.Type = x.withDims(v.Type, c.ChildByFieldName("dimensions"))
		default:
			if v.Type.IsZero() {
				v.Type = x.typeRef(c)
			}
		}
	}
	v.Type.Dims++
	return v
}

func (x *extractor) declareLocals(n *sitter.Node, sc scope) {
	t := x.typeRef(n.ChildByFieldName("type"))
	end := enclosingEnd(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "variable_declarator" {
			continue
		}
		v := x.declareLocal(sc, c.ChildByFieldName("name"),
			x.withDims(t, c.ChildByFieldName("dimensions")), c.StartByte(), end)
		if v == nil {
			continue
		}
		if value := c.ChildByFieldName("value"); value != nil {
			v.Init = x.expr(value, sc)
		}
	}
}

func (x *extractor) declareLocal(sc scope, name *sitter.Node, t TypeRef, at, end uint32) *Variable {
	ex := sc.inner()
	if ex == nil || name == nil {
		return nil
	}
	v := &Variable{Name: x.text(name), Type: t, DeclaredAt: at, ScopeEnd: end}
	ex.Locals = append(ex.Locals, v)
	return v
}

func (x *extractor) declareCatchParam(n *sitter.Node, sc scope) {
	var t TypeRef
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "catch_type" && c.NamedChildCount() == 1 {
			t = x.typeRef(c.NamedChild(0))
		}
	}
	x.declareLocal(sc, n.ChildByFieldName("name"), t, n.StartByte(), enclosingEnd(n))
}

func (x *extractor) declarePattern(n *sitter.Node, sc scope) {
	if name := n.ChildByFieldName("name"); name != nil {
		x.declareLocal(sc, name, x.typeRef(n.ChildByFieldName("right")), n.StartByte(), blockEnd(n))
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_pattern" || c.NamedChildCount() < 2 {
			continue
		}
		name := c.NamedChild(int(c.NamedChildCount()) - 1)
		x.declareLocal(sc, name, x.typeRef(c.NamedChild(0)), n.StartByte(), blockEnd(n))
	}
}

func (x *extractor) declareLambdaParams(n *sitter.Node, sc scope) {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	start, end := n.StartByte(), n.EndByte()
	switch params.Type() {
	case "identifier":
		x.declareLocal(sc, params, TypeRef{}, start, end)
	case "inferred_parameters":
		for i := 0; i < int(params.NamedChildCount()); i++ {
			x.declareLocal(sc, params.NamedChild(i), TypeRef{}, start, end)
		}
	case "formal_parameters":
		for i := 0; i < int(params.NamedChildCount()); i++ {
			c := params.NamedChild(i)
			if c.Type() != "formal_parameter" {
				continue
			}
			t := x.withDims(x.typeRef(c.ChildByFieldName("type")), c.ChildByFieldName("dimensions"))
			if t.IsVar() {
				t = TypeRef{}
			}
			x.declareLocal(sc, c.ChildByFieldName("name"), t, start, end)
		}
	}
}

// enclosingEnd returns the end byte of the node's parent, the extent of a
// local declared by n.
func enclosingEnd(n *sitter.Node) uint32 {
	if p := n.Parent(); p != nil {
		return p.EndByte()
	}
	return n.EndByte()
}

// blockEnd returns the end byte of the nearest enclosing block.
func blockEnd(n *sitter.Node) uint32 {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "block", "constructor_body", "switch_block_statement_group", "lambda_expression":
			return p.EndByte()
		}
	}
	return n.EndByte()
}

// site returns the call site for n, creating it on first use.
func (x *extractor) site(n *sitter.Node, sc scope) *CallSite {
	key := siteKey{start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
	if s, ok := x.sites[key]; ok {
		return s
	}
	s := &CallSite{
		Enclosing: sc.typ,
		Exec:      sc.inner(),
		Offset:    n.StartByte(),
		Position:  positionOf(n, x.unit.Path),
	}
	x.sites[key] = s

	switch n.Type() {
	case "method_invocation":
		s.Kind = CallMethod
		s.Name = x.text(n.ChildByFieldName("name"))
		if obj := n.ChildByFieldName("object"); obj != nil {
			s.Receiver = x.expr(obj, sc)
		} else if hasChild(n, "super") {
			s.Receiver = &Expr{Kind: ExprSuper, Offset: n.StartByte()}
		}
	case "object_creation_expression":
		s.Kind = CallNew
		s.Name = ConstructorName
		s.Created = x.typeRef(n.ChildByFieldName("type"))
	case "explicit_constructor_invocation":
		s.Name = ConstructorName
		s.Kind = CallThis
		if c := n.ChildByFieldName("constructor"); c != nil && c.Type() == "super" {
			s.Kind = CallSuper
		}
	}
	s.Args = x.args(n.ChildByFieldName("arguments"), sc)
	return s
}

func hasChild(n *sitter.Node, kind string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == kind {
			return true
		}
	}
	return false
}

func (x *extractor) args(n *sitter.Node, sc scope) []*Expr {
	if n == nil {
		return nil
	}
	var out []*Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if isComment(c.Type()) {
			continue
		}
		out = append(out, x.expr(c, sc))
	}
	return out
}

// expr summarizes an expression for static typing.
func (x *extractor) expr(n *sitter.Node, sc scope) *Expr {
	if n == nil {
		return &Expr{Kind: ExprUnknown}
	}
	e := &Expr{Offset: n.StartByte()}
	switch n.Type() {
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		e.Kind = ExprLiteral
		e.Text = "int"
		if t := x.text(n); strings.HasSuffix(t, "l") || strings.HasSuffix(t, "L") {
			e.Text = "long"
		}
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		e.Kind = ExprLiteral
		e.Text = "double"
		if t := x.text(n); strings.HasSuffix(t, "f") || strings.HasSuffix(t, "F") {
			e.Text = "float"
		}
	case "true", "false":
		e.Kind, e.Text = ExprLiteral, "boolean"
	case "character_literal":
		e.Kind, e.Text = ExprLiteral, "char"
	case "string_literal", "text_block":
		e.Kind, e.Text = ExprLiteral, "java.lang.String"
	case "null_literal":
		e.Kind, e.Text = ExprLiteral, NullType
	case "identifier":
		e.Kind, e.Text = ExprName, x.text(n)
	case "this":
		e.Kind = ExprThis
	case "super":
		e.Kind = ExprSuper
	case "field_access":
		e.Kind = ExprField
		e.Text = x.text(n.ChildByFieldName("field"))
		e.Operands = []*Expr{x.expr(n.ChildByFieldName("object"), sc)}
	case "method_invocation", "object_creation_expression", "explicit_constructor_invocation":
		e.Kind = ExprCall
		e.Call = x.site(n, sc)
	case "cast_expression":
		e.Kind = ExprCast
		e.Type = x.typeRef(n.ChildByFieldName("type"))
		e.Operands = []*Expr{x.expr(n.ChildByFieldName("value"), sc)}
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return x.expr(n.NamedChild(0), sc)
		}
		e.Kind = ExprUnknown
	case "binary_expression":
		e.Kind = ExprBinary
		if op := n.ChildByFieldName("operator"); op != nil {
			e.Text = op.Type()
		}
		e.Operands = []*Expr{
			x.expr(n.ChildByFieldName("left"), sc),
			x.expr(n.ChildByFieldName("right"), sc),
		}
	case "unary_expression":
		e.Kind = ExprUnary
		if op := n.ChildByFieldName("operator"); op != nil {
			e.Text = op.Type()
		}
		e.Operands = []*Expr{x.expr(n.ChildByFieldName("operand"), sc)}
	case "update_expression":
		e.Kind, e.Text = ExprUnary, "++"
		if n.NamedChildCount() > 0 {
			e.Operands = []*Expr{x.expr(n.NamedChild(0), sc)}
		}
	case "ternary_expression":
		e.Kind = ExprTernary
		e.Operands = []*Expr{
			x.expr(n.ChildByFieldName("consequence"), sc),
			x.expr(n.ChildByFieldName("alternative"), sc),
		}
	case "array_access":
		e.Kind = ExprArrayAccess
		e.Operands = []*Expr{x.expr(n.ChildByFieldName("array"), sc)}
	case "array_creation_expression":
		e.Kind = ExprArrayNew
		e.Type = x.typeRef(n.ChildByFieldName("type"))
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "dimensions_expr":
				e.Type.Dims++
			case "dimensions":
				e.Type.Dims += strings.Count(x.text(c), "[")
			}
		}
	case "class_literal":
		e.Kind = ExprClassLiteral
	case "assignment_expression":
		e.Kind = ExprAssign
		e.Operands = []*Expr{x.expr(n.ChildByFieldName("left"), sc)}
	case "instanceof_expression":
		e.Kind = ExprInstanceof
	case "lambda_expression", "method_reference":
		e.Kind = ExprLambda
	default:
		e.Kind = ExprUnknown
	}
	return e
}

// typeRef reads a type node with generic arguments erased.
func (x *extractor) typeRef(n *sitter.Node) TypeRef {
	if n == nil {
		return TypeRef{}
	}
	switch n.Type() {
	case "array_type":
		return x.withDims(x.typeRef(n.ChildByFieldName("element")), n.ChildByFieldName("dimensions"))
	case "generic_type":
		if n.NamedChildCount() > 0 {
			return x.typeRef(n.NamedChild(0))
		}
	case "scoped_type_identifier":
		var parts []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "type_identifier", "identifier":
				parts = append(parts, x.text(c))
			case "scoped_type_identifier", "generic_type":
				parts = append(parts, x.typeRef(c).Name)
			}
		}
		return TypeRef{Name: strings.Join(parts, ".")}
	case "annotated_type":
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			c := n.NamedChild(i)
			if c.Type() != "annotation" && c.Type() != "marker_annotation" {
				return x.typeRef(c)
			}
		}
	case "type_identifier", "identifier", "integral_type", "floating_point_type",
		"boolean_type", "void_type":
		return TypeRef{Name: x.text(n)}
	}
	return parseTypeText(x.text(n))
}

// withDims adds the dimensions declared after a name to t.
func (x *extractor) withDims(t TypeRef, dims *sitter.Node) TypeRef {
	if dims != nil {
		t.Dims += strings.Count(x.text(dims), "[")
	}
	return t
}

func (x *extractor) typeParams(n *sitter.Node) map[string]TypeRef {
	if n == nil {
		return nil
	}
	out := make(map[string]TypeRef)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_parameter" {
			continue
		}
		var name string
		var bound TypeRef
		for j := 0; j < int(c.NamedChildCount()); j++ {
			part := c.NamedChild(j)
			switch part.Type() {
			case "type_identifier", "identifier":
				if name == "" {
					name = x.text(part)
				}
			case "type_bound":
				if part.NamedChildCount() > 0 {
					bound = x.typeRef(part.NamedChild(0))
				}
			}
		}
		if name != "" {
			out[name] = bound
		}
	}
	return out
}

func (x *extractor) interfaces(n *sitter.Node) []TypeRef {
	var list *sitter.Node
	if ifaces := n.ChildByFieldName("interfaces"); ifaces != nil {
		list = ifaces
	}
	for i := 0; list == nil && i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "extends_interfaces" {
			list = c
		}
	}
	if list == nil {
		return nil
	}
	var out []TypeRef
	for i := 0; i < int(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		if c.Type() != "type_list" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			out = append(out, x.typeRef(c.NamedChild(j)))
		}
	}
	return out
}

// parseTypeText erases generics and whitespace from a type spelling.
func parseTypeText(s string) TypeRef {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		default:
			b.WriteRune(r)
		}
	}
	name := b.String()
	t := TypeRef{}
	for strings.HasSuffix(name, "[]") {
		name = strings.TrimSuffix(name, "[]")
		t.Dims++
	}
	if strings.HasSuffix(name, "...") {
		name = strings.TrimSuffix(name, "...")
		t.Dims++
	}
	t.Name = name
	return t
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}
