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

import "strings"

// ConstructorName is the member name used for constructors.
const ConstructorName = "<init>"

// NullType is the type reported for a null literal argument.
const NullType = "<nulltype>"

// TypeKind classifies a declared type.
type TypeKind string

const (
	TypeKindClass      TypeKind = "class"
	TypeKindInterface  TypeKind = "interface"
	TypeKindEnum       TypeKind = "enum"
	TypeKindRecord     TypeKind = "record"
	TypeKindAnnotation TypeKind = "annotation"
)

// TypeRef is a syntactic type use with generic arguments erased.
//
// Name is the dotted source spelling ("String", "java.util.Map.Entry",
// "int", "var"). Dims counts array dimensions, varargs included.
type TypeRef struct {
	Name string
	Dims int
}

// IsZero reports whether the reference is absent.
func (t TypeRef) IsZero() bool {
	return t.Name == ""
}

// IsVar reports whether the reference is the inferred local type "var".
func (t TypeRef) IsVar() bool {
	return t.Name == "var" && t.Dims == 0
}

// String renders the reference in source form.
func (t TypeRef) String() string {
	return t.Name + strings.Repeat("[]", t.Dims)
}

// Import is a single import declaration.
type Import struct {
	// Path is the imported name without the trailing ".*".
	Path string

	// Static is true for "import static".
	Static bool

	// OnDemand is true for wildcard imports.
	OnDemand bool
}

// FileUnit is the parsed content of one Java source file.
type FileUnit struct {
	// Path is the absolute path of the file.
	Path string

	// Package is the declared package, empty for the default package.
	Package string

	// Imports in declaration order.
	Imports []Import

	// Types lists every type declared in the file in pre-order: top-level,
	// member, local and anonymous types.
	Types []*TypeDecl

	// Executables lists every method and constructor in source order.
	Executables []*Executable

	// Hash is the hex SHA256 of the file content.
	Hash string

	// Errors holds non-fatal parse notes.
	Errors []string
}

// TopLevelTypes returns the fully-qualified names of the top-level types.
func (f *FileUnit) TopLevelTypes() []string {
	var names []string
	for _, t := range f.Types {
		if t.Outer == nil && !t.Local && !t.Anonymous {
			names = append(names, t.QualifiedName)
		}
	}
	return names
}

// TypeDecl is a declared class, interface, enum, record or annotation type.
type TypeDecl struct {
	// Name is the simple name, empty for anonymous classes.
	Name string

	// QualifiedName is the binary name, e.g. "com.acme.Outer$Inner" or
	// "com.acme.Outer$1" for the first anonymous class of Outer.
	QualifiedName string

	Kind TypeKind

	// Outer is the lexically enclosing type, nil for top-level types.
	Outer *TypeDecl

	// EnclosingExec is the executable whose body declares this type, set for
	// local and anonymous classes.
	EnclosingExec *Executable

	File *FileUnit

	// Superclass is the extended class, or for anonymous classes the
	// instantiated type.
	Superclass TypeRef

	Interfaces []TypeRef

	// TypeParams maps each type parameter to its first bound (zero TypeRef
	// when unbounded).
	TypeParams map[string]TypeRef

	Fields       []*Variable
	Methods      []*Executable
	Constructors []*Executable
	Nested       []*TypeDecl

	Local     bool
	Anonymous bool

	Position *SourcePosition
}

// nested returns the directly nested member type with the given simple name.
func (t *TypeDecl) nested(name string) *TypeDecl {
	for _, n := range t.Nested {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// field returns the field declared directly in t with the given name.
func (t *TypeDecl) field(name string) *Variable {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Executable is a declared method or constructor.
type Executable struct {
	// Name is the method name or ConstructorName.
	Name string

	Constructor bool

	// Owner is the declaring type.
	Owner *TypeDecl

	Params  []*Variable
	Varargs bool

	// ParameterTypes holds the fully-qualified parameter types, filled in by
	// BuildModel.
	ParameterTypes []string

	// ReturnType is zero for constructors.
	ReturnType TypeRef

	TypeParams map[string]TypeRef

	// Locals holds variables declared anywhere in the body, including lambda
	// parameters, loop variables and catch parameters.
	Locals []*Variable

	// Sites lists every call and constructor-invocation site in the body in
	// pre-order, including those nested in lambdas and anonymous classes.
	Sites []*CallSite

	// Parent is the executable enclosing the owner, for members of local and
	// anonymous classes.
	Parent *Executable

	Position *SourcePosition
}

// ParamNames returns the declared parameter names.
func (e *Executable) ParamNames() []string {
	names := make([]string, len(e.Params))
	for i, p := range e.Params {
		names[i] = p.Name
	}
	return names
}

// Variable is a field, parameter, or local variable.
type Variable struct {
	Name string
	Type TypeRef

	// Init is the initializer expression, used for "var" inference.
	Init *Expr

	// DeclaredAt and ScopeEnd bound the byte range in which a local is
	// visible. Both are zero for fields and parameters.
	DeclaredAt uint32
	ScopeEnd   uint32
}

// CallKind classifies a call site.
type CallKind int

const (
	// CallMethod is a method invocation.
	CallMethod CallKind = iota

	// CallNew is an instance creation expression.
	CallNew

	// CallThis is an explicit this(...) constructor invocation.
	CallThis

	// CallSuper is an explicit super(...) constructor invocation.
	CallSuper
)

// String returns the kind label used in logs and metrics.
func (k CallKind) String() string {
	switch k {
	case CallMethod:
		return "method"
	case CallNew:
		return "new"
	case CallThis:
		return "this"
	case CallSuper:
		return "super"
	default:
		return "unknown"
	}
}

// CallSite is one call or constructor-invocation expression.
type CallSite struct {
	Kind CallKind

	// Name is the invoked method name, or ConstructorName.
	Name string

	// Receiver is the qualifying expression of a method call, nil when the
	// call is unqualified.
	Receiver *Expr

	// Created is the instantiated type of a CallNew site.
	Created TypeRef

	// Anonymous is the class body declared by a CallNew site, if any.
	Anonymous *TypeDecl

	Args []*Expr

	// Enclosing is the innermost type lexically containing the site.
	Enclosing *TypeDecl

	// Exec is the innermost executable containing the site.
	Exec *Executable

	// Offset is the start byte of the site.
	Offset uint32

	Position *SourcePosition

	// Ref is the resolved reference, filled in by BuildModel.
	Ref Reference

	resolved  bool
	resolving bool
}

// File returns the path of the file containing the site.
func (s *CallSite) File() string {
	if s.Enclosing != nil && s.Enclosing.File != nil {
		return s.Enclosing.File.Path
	}
	return ""
}

// Resolution is the outcome of resolving one field of a reference.
//
// OK is false when the value could not be determined; Reason then explains
// why and Value is the zero value.
type Resolution[T any] struct {
	Value  T
	OK     bool
	Reason string
}

// Resolved returns a successful resolution.
func Resolved[T any](v T) Resolution[T] {
	return Resolution[T]{Value: v, OK: true}
}

// Unresolved returns a failed resolution with a reason.
func Unresolved[T any](reason string) Resolution[T] {
	return Resolution[T]{Reason: reason}
}

// Reference is the symbolic target of a call site.
type Reference struct {
	DeclaringType  Resolution[string]
	Name           string
	ParameterTypes Resolution[[]string]
	ParameterNames Resolution[[]string]

	// Target is the model declaration the site binds to, when known.
	Target *Executable
}

// ExprKind classifies an expression summary.
type ExprKind int

const (
	ExprUnknown ExprKind = iota
	ExprLiteral
	ExprName
	ExprField
	ExprCall
	ExprThis
	ExprSuper
	ExprCast
	ExprBinary
	ExprUnary
	ExprTernary
	ExprArrayAccess
	ExprArrayNew
	ExprClassLiteral
	ExprAssign
	ExprInstanceof
	ExprLambda
)

// Expr is a typing-oriented summary of an expression.
//
// Text holds the literal's type, the identifier, the accessed field, or the
// operator depending on Kind. Type holds the target of casts, array
// creations and class literals.
type Expr struct {
	Kind     ExprKind
	Text     string
	Type     TypeRef
	Operands []*Expr
	Call     *CallSite
	Offset   uint32
}

// Model is the combined, resolved source model of a set of files.
//
// A Model is read-only after BuildModel returns.
type Model struct {
	// Files in input order.
	Files []*FileUnit

	// FileErrors lists files that could not be read or parsed.
	FileErrors []FileError

	types     map[string]*TypeDecl
	canonical map[string]*TypeDecl
	external  map[string][]Signature
	jdk       *jdkKnowledge
}

// FileError records a file excluded from the model.
type FileError struct {
	Path string
	Err  error
}

// Signature is a known method or constructor outside the analyzed sources.
type Signature struct {
	DeclaringType  string
	Name           string
	ParameterTypes []string
}

// Type returns the declared type with the given binary or canonical name.
func (m *Model) Type(name string) (*TypeDecl, bool) {
	if t, ok := m.types[name]; ok {
		return t, true
	}
	t, ok := m.canonical[name]
	return t, ok
}

// Types returns every declared type in file then source order.
func (m *Model) Types() []*TypeDecl {
	var out []*TypeDecl
	for _, f := range m.Files {
		out = append(out, f.Types...)
	}
	return out
}

// Methods returns every declared method in file then source order.
func (m *Model) Methods() []*Executable {
	var out []*Executable
	for _, f := range m.Files {
		for _, e := range f.Executables {
			if !e.Constructor {
				out = append(out, e)
			}
		}
	}
	return out
}

// Constructors returns every declared constructor in file then source order.
func (m *Model) Constructors() []*Executable {
	var out []*Executable
	for _, f := range m.Files {
		for _, e := range f.Executables {
			if e.Constructor {
				out = append(out, e)
			}
		}
	}
	return out
}

// SiteCount returns the number of distinct call sites in the model.
func (m *Model) SiteCount() int {
	seen := make(map[*CallSite]struct{})
	for _, f := range m.Files {
		for _, e := range f.Executables {
			for _, s := range e.Sites {
				seen[s] = struct{}{}
			}
		}
	}
	return len(seen)
}
