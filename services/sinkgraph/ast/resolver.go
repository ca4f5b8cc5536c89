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
	"strings"
	"unicode"
)

// maxTypingDepth bounds recursive expression typing.
const maxTypingDepth = 64

var primitives = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
}

var boxes = map[string]string{
	"boolean": "java.lang.Boolean",
	"byte":    "java.lang.Byte",
	"char":    "java.lang.Character",
	"short":   "java.lang.Short",
	"int":     "java.lang.Integer",
	"long":    "java.lang.Long",
	"float":   "java.lang.Float",
	"double":  "java.lang.Double",
}

var unboxes = func() map[string]string {
	m := make(map[string]string, len(boxes))
	for p, b := range boxes {
		m[b] = p
	}
	return m
}()

// numericRank orders primitive numeric types for promotion and widening.
var numericRank = map[string]int{
	"byte": 1, "short": 2, "char": 2, "int": 3, "long": 4, "float": 5, "double": 6,
}

// nameCtx is the lexical context a name is resolved in.
type nameCtx struct {
	file *FileUnit
	typ  *TypeDecl
	exec *Executable
}

func ctxOfType(t *TypeDecl) nameCtx {
	return nameCtx{file: t.File, typ: t, exec: t.EnclosingExec}
}

// resolver resolves type names, expressions and call sites against a Model.
//
// Not safe for concurrent use; BuildModel drives it from one goroutine.
type resolver struct {
	m      *Model
	supers map[*TypeDecl][]string
	depth  int
}

func newResolver(m *Model) *resolver {
	return &resolver{m: m, supers: make(map[*TypeDecl][]string)}
}

// resolveTypeRef renders a type use as a fully-qualified name.
func (r *resolver) resolveTypeRef(t TypeRef, c nameCtx) string {
	if t.IsZero() {
		return ""
	}
	return r.resolveTypeName(t.Name, c) + strings.Repeat("[]", t.Dims)
}

func (r *resolver) resolveTypeName(name string, c nameCtx) string {
	if primitives[name] {
		return name
	}
	if strings.Contains(name, ".") {
		return r.resolveQualified(name, c)
	}
	if bound, ok := typeParam(name, c); ok {
		if bound.IsZero() || bound.Name == name || r.depth > maxTypingDepth {
			return "java.lang.Object"
		}
		r.depth++
		defer func() { r.depth-- }()
		return r.resolveTypeName(bound.Name, c)
	}
	if fqn, ok := r.lookupSimple(name, c); ok {
		return fqn
	}
	pkg := ""
	if c.file != nil {
		pkg = c.file.Package
	}
	return qualify(pkg, name)
}

// typeParam finds a type parameter visible from c.
func typeParam(name string, c nameCtx) (TypeRef, bool) {
	for e := c.exec; e != nil; e = e.Parent {
		if b, ok := e.TypeParams[name]; ok {
			return b, true
		}
	}
	for t := c.typ; t != nil; t = t.Outer {
		if b, ok := t.TypeParams[name]; ok {
			return b, true
		}
	}
	return TypeRef{}, false
}

// lookupSimple resolves a simple type name through enclosing types, imports,
// the current package, java.lang, and on-demand imports, in that order.
func (r *resolver) lookupSimple(name string, c nameCtx) (string, bool) {
	for t := c.typ; t != nil; t = t.Outer {
		if t.Name == name {
			return t.QualifiedName, true
		}
		if n := r.memberType(t, name, map[*TypeDecl]bool{}); n != nil {
			return n.QualifiedName, true
		}
	}
	if c.file == nil {
		return "", false
	}
	for _, imp := range c.file.Imports {
		if imp.Static || imp.OnDemand {
			continue
		}
		if lastSegment(imp.Path) == name {
			return r.binaryName(imp.Path), true
		}
	}
	if t, ok := r.m.canonical[qualify(c.file.Package, name)]; ok {
		return t.QualifiedName, true
	}
	if r.m.jdk.isJavaLang(name) {
		return "java.lang." + name, true
	}
	for _, imp := range c.file.Imports {
		if imp.Static || !imp.OnDemand {
			continue
		}
		cand := imp.Path + "." + name
		if t, ok := r.m.canonical[cand]; ok {
			return t.QualifiedName, true
		}
		if r.m.jdk.inPackage(imp.Path, name) {
			return cand, true
		}
	}
	return "", false
}

// resolveQualified resolves a dotted type name such as "Map.Entry" or
// "java.io.File".
func (r *resolver) resolveQualified(name string, c nameCtx) string {
	if t, ok := r.m.canonical[name]; ok {
		return t.QualifiedName
	}
	head, rest, _ := strings.Cut(name, ".")
	if isTypeLike(head) {
		if fqn, ok := r.lookupSimple(head, c); ok {
			if t, ok := r.m.types[fqn]; ok {
				cur := t
				for _, part := range strings.Split(rest, ".") {
					if cur = r.memberType(cur, part, map[*TypeDecl]bool{}); cur == nil {
						break
					}
				}
				if cur != nil {
					return cur.QualifiedName
				}
			}
			return fqn + "$" + strings.ReplaceAll(rest, ".", "$")
		}
	}
	return r.binaryName(name)
}

// binaryName converts a canonical dotted name to a binary name, nesting
// segments after the first type-like segment with '$'.
func (r *resolver) binaryName(path string) string {
	if t, ok := r.m.canonical[path]; ok {
		return t.QualifiedName
	}
	parts := strings.Split(path, ".")
	for i, p := range parts {
		if isTypeLike(p) {
			return strings.Join(append([]string{strings.Join(parts[:i+1], ".")}, parts[i+1:]...), "$")
		}
	}
	return path
}

// isTypeLike reports whether an identifier follows type naming convention.
func isTypeLike(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// superNames returns the resolved names of t's direct supertypes.
func (r *resolver) superNames(t *TypeDecl) []string {
	if names, ok := r.supers[t]; ok {
		return names
	}
	r.supers[t] = nil
	c := nameCtx{file: t.File, typ: t.Outer, exec: t.EnclosingExec}
	var names []string
	if !t.Superclass.IsZero() {
		names = append(names, r.resolveTypeRef(t.Superclass, c))
	}
	for _, i := range t.Interfaces {
		names = append(names, r.resolveTypeRef(i, c))
	}
	r.supers[t] = names
	return names
}

// superTypes returns t's direct supertypes declared in the model.
func (r *resolver) superTypes(t *TypeDecl) []*TypeDecl {
	var out []*TypeDecl
	for _, n := range r.superNames(t) {
		if st, ok := r.m.types[n]; ok && st != t {
			out = append(out, st)
		}
	}
	return out
}

// hierarchy returns t followed by its model supertypes, breadth first.
func (r *resolver) hierarchy(t *TypeDecl) []*TypeDecl {
	seen := map[*TypeDecl]bool{}
	var out []*TypeDecl
	queue := []*TypeDecl{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, r.superTypes(cur)...)
	}
	return out
}

// memberType finds a member type declared in t or inherited from its model
// supertypes.
func (r *resolver) memberType(t *TypeDecl, name string, seen map[*TypeDecl]bool) *TypeDecl {
	if seen[t] {
		return nil
	}
	seen[t] = true
	if n := t.nested(name); n != nil {
		return n
	}
	for _, st := range r.superTypes(t) {
		if n := r.memberType(st, name, seen); n != nil {
			return n
		}
	}
	return nil
}

// fieldIn finds a field declared in t or its model supertypes.
func (r *resolver) fieldIn(t *TypeDecl, name string) (*Variable, *TypeDecl) {
	for _, h := range r.hierarchy(t) {
		if f := h.field(name); f != nil {
			return f, h
		}
	}
	return nil, nil
}

// declaringOwner returns the first type in t's hierarchy that declares a
// method with the given name.
func (r *resolver) declaringOwner(t *TypeDecl, name string) *TypeDecl {
	for _, h := range r.hierarchy(t) {
		for _, m := range h.Methods {
			if m.Name == name {
				return h
			}
		}
	}
	return nil
}

// isSubtype reports whether sub is assignable to target through the model
// hierarchy or the platform supertype table.
func (r *resolver) isSubtype(sub, target string) bool {
	seen := map[string]bool{}
	queue := []string{sub}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if t, ok := r.m.types[cur]; ok {
			queue = append(queue, r.superNames(t)...)
			continue
		}
		if r.m.jdk.isSubtype(cur, target) {
			return true
		}
	}
	return false
}

// compatible reports whether an argument of type arg can bind to a
// parameter of type param.
func (r *resolver) compatible(arg, param string) bool {
	switch {
	case arg == param:
		return true
	case arg == NullType:
		return !primitives[param]
	case numericRank[arg] > 0 && numericRank[param] > 0:
		return numericRank[arg] < numericRank[param] && param != "char"
	case boxes[arg] == param || unboxes[arg] == param:
		return true
	case param == "java.lang.Object":
		return !primitives[arg] || boxes[arg] != ""
	case strings.HasSuffix(arg, "[]") && strings.HasSuffix(param, "[]"):
		return r.compatible(strings.TrimSuffix(arg, "[]"), strings.TrimSuffix(param, "[]")) &&
			!primitives[strings.TrimSuffix(arg, "[]")]
	}
	if b, ok := boxes[arg]; ok {
		arg = b
	}
	return r.isSubtype(arg, param)
}

// lookupVar finds a local variable or parameter visible at offset.
func lookupVar(name string, c nameCtx, offset uint32) (*Variable, *Executable) {
	for e := c.exec; e != nil; e = e.Parent {
		var best *Variable
		for _, v := range e.Locals {
			if v.Name != name || v.DeclaredAt > offset || offset >= v.ScopeEnd {
				continue
			}
			if best == nil || v.DeclaredAt > best.DeclaredAt {
				best = v
			}
		}
		if best != nil {
			return best, e
		}
		for _, p := range e.Params {
			if p.Name == name {
				return p, e
			}
		}
	}
	return nil, nil
}

// typeOf computes the static type of an expression.
func (r *resolver) typeOf(e *Expr, c nameCtx) (string, bool) {
	if e == nil || r.depth > maxTypingDepth {
		return "", false
	}
	r.depth++
	defer func() { r.depth-- }()

	switch e.Kind {
	case ExprLiteral:
		return e.Text, true
	case ExprThis:
		if c.typ == nil {
			return "", false
		}
		return c.typ.QualifiedName, true
	case ExprSuper:
		if c.typ == nil {
			return "", false
		}
		return r.superclassName(c.typ), true
	case ExprName:
		return r.nameType(e.Text, c, e.Offset)
	case ExprField:
		return r.fieldType(e, c)
	case ExprCall:
		r.resolveSite(e.Call)
		return r.returnType(e.Call)
	case ExprCast, ExprArrayNew:
		if e.Type.IsZero() {
			return "", false
		}
		return r.resolveTypeRef(e.Type, c), true
	case ExprClassLiteral:
		return "java.lang.Class", true
	case ExprInstanceof:
		return "boolean", true
	case ExprAssign:
		return r.typeOf(e.Operands[0], c)
	case ExprArrayAccess:
		t, ok := r.typeOf(e.Operands[0], c)
		if !ok || !strings.HasSuffix(t, "[]") {
			return "", false
		}
		return strings.TrimSuffix(t, "[]"), true
	case ExprTernary:
		return r.ternaryType(e, c)
	case ExprUnary:
		return r.unaryType(e, c)
	case ExprBinary:
		return r.binaryType(e, c)
	}
	return "", false
}

func (r *resolver) nameType(name string, c nameCtx, offset uint32) (string, bool) {
	if v, ex := lookupVar(name, c, offset); v != nil {
		return r.varType(v, nameCtx{file: c.file, typ: ex.Owner, exec: ex})
	}
	for t := c.typ; t != nil; t = t.Outer {
		if f, owner := r.fieldIn(t, name); f != nil {
			return r.varType(f, ctxOfType(owner))
		}
	}
	return "", false
}

func (r *resolver) varType(v *Variable, c nameCtx) (string, bool) {
	if v.Type.IsVar() {
		if v.Init == nil {
			return "", false
		}
		return r.typeOf(v.Init, c)
	}
	if v.Type.IsZero() {
		return "", false
	}
	return r.resolveTypeRef(v.Type, c), true
}

func (r *resolver) fieldType(e *Expr, c nameCtx) (string, bool) {
	obj := e.Operands[0]
	var owner string
	if t, ok := r.typeOf(obj, c); ok {
		owner = t
	} else if t, ok := r.typeNameOf(obj, c); ok {
		owner = t
	} else {
		return "", false
	}
	if strings.HasSuffix(owner, "[]") {
		if e.Text == "length" {
			return "int", true
		}
		return "", false
	}
	t, ok := r.m.types[owner]
	if !ok {
		return "", false
	}
	f, declaredIn := r.fieldIn(t, e.Text)
	if f == nil {
		return "", false
	}
	return r.varType(f, ctxOfType(declaredIn))
}

// typeNameOf interprets a name or field-access chain as a type name.
func (r *resolver) typeNameOf(e *Expr, c nameCtx) (string, bool) {
	dotted, ok := flatten(e)
	if !ok {
		return "", false
	}
	if !strings.Contains(dotted, ".") {
		if fqn, ok := r.lookupSimple(dotted, c); ok {
			return fqn, true
		}
		if isTypeLike(dotted) {
			return r.resolveTypeName(dotted, c), true
		}
		return "", false
	}
	if !isTypeLike(lastSegment(dotted)) {
		return "", false
	}
	return r.resolveQualified(dotted, c), true
}

// flatten renders a chain of names and field accesses as a dotted string.
func flatten(e *Expr) (string, bool) {
	switch e.Kind {
	case ExprName:
		return e.Text, true
	case ExprField:
		head, ok := flatten(e.Operands[0])
		if !ok {
			return "", false
		}
		return head + "." + e.Text, true
	}
	return "", false
}

func (r *resolver) ternaryType(e *Expr, c nameCtx) (string, bool) {
	a, aok := r.typeOf(e.Operands[0], c)
	b, bok := r.typeOf(e.Operands[1], c)
	switch {
	case aok && bok && a == b:
		return a, true
	case aok && bok && a == NullType:
		return b, true
	case aok && bok && b == NullType:
		return a, true
	case aok && bok:
		return promote(a, b)
	}
	return "", false
}

func (r *resolver) unaryType(e *Expr, c nameCtx) (string, bool) {
	if e.Text == "!" {
		return "boolean", true
	}
	if len(e.Operands) == 0 {
		return "", false
	}
	t, ok := r.typeOf(e.Operands[0], c)
	if !ok {
		return "", false
	}
	if e.Text == "++" {
		return t, true
	}
	return promote(t, "int")
}

func (r *resolver) binaryType(e *Expr, c nameCtx) (string, bool) {
	switch e.Text {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return "boolean", true
	}
	a, aok := r.typeOf(e.Operands[0], c)
	b, bok := r.typeOf(e.Operands[1], c)
	if e.Text == "+" && ((aok && a == "java.lang.String") || (bok && b == "java.lang.String")) {
		return "java.lang.String", true
	}
	if !aok || !bok {
		return "", false
	}
	switch e.Text {
	case "&", "|", "^":
		if unboxed(a) == "boolean" && unboxed(b) == "boolean" {
			return "boolean", true
		}
	case "<<", ">>", ">>>":
		return promote(a, "int")
	}
	return promote(a, b)
}

func unboxed(t string) string {
	if p, ok := unboxes[t]; ok {
		return p
	}
	return t
}

// promote applies binary numeric promotion.
func promote(a, b string) (string, bool) {
	a, b = unboxed(a), unboxed(b)
	ra, rb := numericRank[a], numericRank[b]
	if ra == 0 || rb == 0 {
		return "", false
	}
	switch {
	case a == "double" || b == "double":
		return "double", true
	case a == "float" || b == "float":
		return "float", true
	case a == "long" || b == "long":
		return "long", true
	}
	return "int", true
}

func (r *resolver) superclassName(t *TypeDecl) string {
	if !t.Superclass.IsZero() {
		if names := r.superNames(t); len(names) > 0 {
			return names[0]
		}
	}
	switch t.Kind {
	case TypeKindEnum:
		return "java.lang.Enum"
	case TypeKindRecord:
		return "java.lang.Record"
	}
	return "java.lang.Object"
}

// returnType computes the type produced by a resolved call site.
func (r *resolver) returnType(s *CallSite) (string, bool) {
	if !s.Ref.DeclaringType.OK {
		return "", false
	}
	switch s.Kind {
	case CallNew:
		return s.Ref.DeclaringType.Value, true
	case CallThis, CallSuper:
		return "", false
	}
	if t := s.Ref.Target; t != nil {
		if t.ReturnType.IsZero() || t.ReturnType.Name == "void" {
			return "", false
		}
		if inferred, ok := r.inferTypeVar(s, t); ok {
			return inferred, true
		}
		return r.resolveTypeRef(t.ReturnType, nameCtx{file: t.Owner.File, typ: t.Owner, exec: t}), true
	}
	return r.m.jdk.returnType(s.Ref.DeclaringType.Value, s.Name)
}

// inferTypeVar types a call whose return type is one of the method's own type
// variables from the first argument passed for a parameter of that variable.
// Without such an argument the erased bound applies.
func (r *resolver) inferTypeVar(s *CallSite, t *Executable) (string, bool) {
	ret := t.ReturnType
	if _, ok := t.TypeParams[ret.Name]; !ok || s.Enclosing == nil {
		return "", false
	}
	c := nameCtx{file: s.Enclosing.File, typ: s.Enclosing, exec: s.Exec}
	for i, p := range t.Params {
		if p.Type.Name != ret.Name || i >= len(s.Args) || (t.Varargs && i == len(t.Params)-1) {
			continue
		}
		arg, ok := r.typeOf(s.Args[i], c)
		if !ok || arg == "" || arg == NullType {
			continue
		}
		elem, ok := stripDims(arg, p.Type.Dims)
		if !ok {
			continue
		}
		if b, isPrim := boxes[elem]; isPrim {
			elem = b
		}
		return elem + strings.Repeat("[]", ret.Dims), true
	}
	return "", false
}

// stripDims removes n trailing array dimensions from a type name.
func stripDims(typ string, n int) (string, bool) {
	for range n {
		var ok bool
		if typ, ok = strings.CutSuffix(typ, "[]"); !ok {
			return "", false
		}
	}
	return typ, true
}
