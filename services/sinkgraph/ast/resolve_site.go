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

// Resolution failure reasons.
const (
	reasonReceiverUnknown = "receiver type could not be determined"
	reasonNoCreatedType   = "instantiated type is missing"
	reasonArgumentUnknown = "argument type could not be determined"
	reasonNoDeclaration   = "declaration is outside the analyzed sources"
	reasonNoEnclosingType = "site has no enclosing type"
)

// resolveSite fills in s.Ref. Each field resolves independently.
func (r *resolver) resolveSite(s *CallSite) {
	if s.resolved || s.resolving {
		return
	}
	s.resolving = true
	defer func() {
		s.resolving = false
		s.resolved = true
	}()

	ref := Reference{Name: s.Name}
	if s.Enclosing == nil {
		ref.DeclaringType = Unresolved[string](reasonNoEnclosingType)
		ref.ParameterTypes = Unresolved[[]string](reasonNoEnclosingType)
		ref.ParameterNames = Unresolved[[]string](reasonNoEnclosingType)
		s.Ref = ref
		return
	}
	c := nameCtx{file: s.Enclosing.File, typ: s.Enclosing, exec: s.Exec}

	argTypes := make([]string, len(s.Args))
	allTyped := true
	for i, a := range s.Args {
		t, ok := r.typeOf(a, c)
		if !ok {
			allTyped = false
			continue
		}
		argTypes[i] = t
	}

	ref.DeclaringType = r.declaringType(s, c)

	var target *Executable
	var external *Signature
	if ref.DeclaringType.OK {
		target, external = r.selectOverload(ref.DeclaringType.Value, s.Name, argTypes)
	}

	switch {
	case target != nil:
		ref.Target = target
		ref.DeclaringType = Resolved(target.Owner.QualifiedName)
		ref.ParameterTypes = Resolved(r.declaredParamTypes(target))
		ref.ParameterNames = Resolved(target.ParamNames())
	case external != nil:
		ref.ParameterTypes = Resolved(append([]string(nil), external.ParameterTypes...))
		ref.ParameterNames = Unresolved[[]string](reasonNoDeclaration)
	default:
		if allTyped {
			ref.ParameterTypes = Resolved(argTypes)
		} else {
			ref.ParameterTypes = Unresolved[[]string](reasonArgumentUnknown)
		}
		ref.ParameterNames = Unresolved[[]string](reasonNoDeclaration)
	}

	recordResolution("declaring_type", ref.DeclaringType.OK)
	recordResolution("parameter_types", ref.ParameterTypes.OK)
	recordResolution("parameter_names", ref.ParameterNames.OK)
	s.Ref = ref
}

// declaringType determines the static type that declares the invoked member.
func (r *resolver) declaringType(s *CallSite, c nameCtx) Resolution[string] {
	switch s.Kind {
	case CallNew:
		if s.Created.IsZero() {
			return Unresolved[string](reasonNoCreatedType)
		}
		return Resolved(r.resolveTypeRef(s.Created, c))
	case CallThis:
		return Resolved(c.typ.QualifiedName)
	case CallSuper:
		return Resolved(r.superclassName(c.typ))
	}

	if s.Receiver == nil {
		for t := c.typ; t != nil; t = t.Outer {
			if owner := r.declaringOwner(t, s.Name); owner != nil {
				return Resolved(owner.QualifiedName)
			}
		}
		if owner, ok := r.staticImportOwner(s.Name, c.file); ok {
			return Resolved(owner)
		}
		return Resolved(c.typ.QualifiedName)
	}

	switch s.Receiver.Kind {
	case ExprThis:
		if owner := r.declaringOwner(c.typ, s.Name); owner != nil {
			return Resolved(owner.QualifiedName)
		}
		return Resolved(c.typ.QualifiedName)
	case ExprSuper:
		sup := r.superclassName(c.typ)
		if st, ok := r.m.types[sup]; ok {
			if owner := r.declaringOwner(st, s.Name); owner != nil {
				return Resolved(owner.QualifiedName)
			}
		}
		return Resolved(sup)
	}

	recv, ok := r.typeOf(s.Receiver, c)
	if !ok {
		if recv, ok = r.typeNameOf(s.Receiver, c); !ok {
			return Unresolved[string](reasonReceiverUnknown)
		}
	}
	if recv == NullType {
		return Unresolved[string](reasonReceiverUnknown)
	}
	if t, ok := r.m.types[recv]; ok {
		if owner := r.declaringOwner(t, s.Name); owner != nil {
			return Resolved(owner.QualifiedName)
		}
	}
	return Resolved(recv)
}

// staticImportOwner finds the type a statically imported method comes from.
func (r *resolver) staticImportOwner(name string, f *FileUnit) (string, bool) {
	if f == nil {
		return "", false
	}
	for _, imp := range f.Imports {
		if !imp.Static {
			continue
		}
		if !imp.OnDemand {
			if lastSegment(imp.Path) == name {
				return r.binaryName(strings.TrimSuffix(imp.Path, "."+name)), true
			}
			continue
		}
		if t, ok := r.m.Type(imp.Path); ok {
			if owner := r.declaringOwner(t, name); owner != nil {
				return owner.QualifiedName, true
			}
		}
	}
	return "", false
}

// selectOverload picks the declaration a call binds to.
//
// Model declarations are preferred. When the declaring type is outside the
// model, known external signatures are consulted. A candidate is chosen when
// it is the only one whose parameters accept every typed argument, or when
// its parameters equal the argument types exactly.
func (r *resolver) selectOverload(declType, name string, argTypes []string) (*Executable, *Signature) {
	arity := len(argTypes)
	if t, ok := r.m.types[declType]; ok {
		var cands []*Executable
		if name == ConstructorName {
			cands = t.Constructors
		} else {
			for _, h := range r.hierarchy(t) {
				for _, m := range h.Methods {
					if m.Name == name {
						cands = append(cands, m)
					}
				}
			}
		}
		var fitting []*Executable
		var params [][]string
		for _, cand := range cands {
			if len(cand.Params) == arity || (cand.Varargs && arity >= len(cand.Params)-1) {
				fitting = append(fitting, cand)
				params = append(params, r.declaredParamTypes(cand))
			}
		}
		if i := r.choose(params, argTypes, func(i int) bool { return fitting[i].Varargs }); i >= 0 {
			return fitting[i], nil
		}
		return nil, nil
	}

	var fitting []Signature
	var params [][]string
	for _, sig := range r.m.external[declType+"::"+name] {
		if len(sig.ParameterTypes) == arity {
			fitting = append(fitting, sig)
			params = append(params, sig.ParameterTypes)
		}
	}
	if i := r.choose(params, argTypes, func(int) bool { return false }); i >= 0 {
		return nil, &fitting[i]
	}
	return nil, nil
}

// choose returns the index of the selected parameter list, or -1.
func (r *resolver) choose(params [][]string, args []string, varargs func(int) bool) int {
	for i, p := range params {
		if len(p) == len(args) && equalTypes(p, args) {
			return i
		}
	}
	match := -1
	for i, p := range params {
		if !r.accepts(p, args, varargs(i)) {
			continue
		}
		if match >= 0 {
			return -1
		}
		match = i
	}
	return match
}

func equalTypes(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// accepts reports whether params can bind args. Empty argument types are
// unknown and accepted by any parameter.
func (r *resolver) accepts(params, args []string, varargs bool) bool {
	for i, a := range args {
		if a == "" {
			continue
		}
		var p string
		switch {
		case varargs && i >= len(params)-1:
			last := params[len(params)-1]
			if len(args) == len(params) && r.compatible(a, last) {
				continue
			}
			p = strings.TrimSuffix(last, "[]")
		case i < len(params):
			p = params[i]
		default:
			return false
		}
		if !r.compatible(a, p) {
			return false
		}
	}
	return true
}

// declaredParamTypes resolves an executable's parameter types in its own
// declaration context.
func (r *resolver) declaredParamTypes(e *Executable) []string {
	c := nameCtx{file: e.Owner.File, typ: e.Owner, exec: e}
	out := make([]string, len(e.Params))
	for i, p := range e.Params {
		out[i] = r.resolveTypeRef(p.Type, c)
	}
	return out
}
