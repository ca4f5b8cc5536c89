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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var fileReaderSignatures = []Signature{
	{DeclaringType: "java.io.FileReader", Name: ConstructorName, ParameterTypes: []string{"java.lang.String"}},
	{DeclaringType: "java.io.FileReader", Name: ConstructorName, ParameterTypes: []string{"java.io.File"}},
	{DeclaringType: "java.io.FileInputStream", Name: ConstructorName, ParameterTypes: []string{"java.lang.String"}},
	{DeclaringType: "java.io.FileInputStream", Name: ConstructorName, ParameterTypes: []string{"java.io.File"}},
}

func writeJava(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func buildReaderModel(t *testing.T) *Model {
	t.Helper()
	dir := t.TempDir()
	path := writeJava(t, dir, "Reader.java", readerSource)
	m, err := BuildModel(context.Background(), []string{path}, WithExternalSignatures(fileReaderSignatures))
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}
	return m
}

func siteOf(t *testing.T, m *Model, owner, method string, i int) *CallSite {
	t.Helper()
	for _, e := range m.Methods() {
		if e.Owner.QualifiedName == owner && e.Name == method {
			if i >= len(e.Sites) {
				t.Fatalf("%s.%s has %d sites", owner, method, len(e.Sites))
			}
			return e.Sites[i]
		}
	}
	t.Fatalf("%s.%s not found", owner, method)
	return nil
}

func TestBuildModel_NoFiles(t *testing.T) {
	if _, err := BuildModel(context.Background(), nil); !errors.Is(err, ErrNoFiles) {
		t.Errorf("err = %v, want ErrNoFiles", err)
	}
}

func TestBuildModel_ExternalConstructor(t *testing.T) {
	m := buildReaderModel(t)
	s := siteOf(t, m, "com.acme.Reader", "read", 0)

	if !s.Ref.DeclaringType.OK || s.Ref.DeclaringType.Value != "java.io.FileReader" {
		t.Errorf("DeclaringType = %+v", s.Ref.DeclaringType)
	}
	if s.Ref.Name != ConstructorName {
		t.Errorf("Name = %q", s.Ref.Name)
	}
	if !s.Ref.ParameterTypes.OK || !reflect.DeepEqual(s.Ref.ParameterTypes.Value, []string{"java.lang.String"}) {
		t.Errorf("ParameterTypes = %+v", s.Ref.ParameterTypes)
	}
	if s.Ref.ParameterNames.OK {
		t.Errorf("ParameterNames should be unresolved for a platform constructor, got %v", s.Ref.ParameterNames.Value)
	}
}

func TestBuildModel_ModelOverload(t *testing.T) {
	m := buildReaderModel(t)
	s := siteOf(t, m, "com.acme.Reader", "read", 3)

	if s.Ref.Target == nil {
		t.Fatal("helper call should bind to a declaration")
	}
	if got := s.Ref.ParameterTypes.Value; !reflect.DeepEqual(got, []string{"java.lang.String", "int"}) {
		t.Errorf("ParameterTypes = %v", got)
	}
	if got := s.Ref.ParameterNames.Value; !reflect.DeepEqual(got, []string{"s", "n"}) {
		t.Errorf("ParameterNames = %v", got)
	}
	if s.Ref.DeclaringType.Value != "com.acme.Reader" {
		t.Errorf("DeclaringType = %q", s.Ref.DeclaringType.Value)
	}
}

func TestBuildModel_VarargsCall(t *testing.T) {
	m := buildReaderModel(t)
	s := siteOf(t, m, "com.acme.Reader$Inner", "go", 0)

	if s.Ref.Target == nil {
		t.Fatal("log call from nested class should bind to Reader.log")
	}
	if s.Ref.DeclaringType.Value != "com.acme.Reader" {
		t.Errorf("DeclaringType = %q", s.Ref.DeclaringType.Value)
	}
	want := []string{"java.lang.String", "java.lang.Object[]"}
	if got := s.Ref.ParameterTypes.Value; !reflect.DeepEqual(got, want) {
		t.Errorf("ParameterTypes = %v, want %v", got, want)
	}
}

func TestBuildModel_DeclarationParameterTypes(t *testing.T) {
	m := buildReaderModel(t)
	for _, e := range m.Constructors() {
		if e.Owner.QualifiedName != "com.acme.Reader" {
			continue
		}
		if !reflect.DeepEqual(e.ParameterTypes, []string{"java.lang.String"}) {
			t.Errorf("constructor ParameterTypes = %v", e.ParameterTypes)
		}
		return
	}
	t.Fatal("Reader constructor not found")
}

func TestBuildModel_Resolution(t *testing.T) {
	src := `package com.acme.io;

import java.io.*;

class Files2 {
    void a(String path) {
        var f = new File(path);
        new FileInputStream(f);
    }

    void b() {
        pick("x", "y");
        unknown.call(1);
    }

    void pick(String a, Object b) {}

    void pick(Object a, String b) {}
}
`
	dir := t.TempDir()
	path := writeJava(t, dir, "Files2.java", src)
	m, err := BuildModel(context.Background(), []string{path}, WithExternalSignatures(fileReaderSignatures))
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}

	t.Run("var inferred from initializer", func(t *testing.T) {
		s := siteOf(t, m, "com.acme.io.Files2", "a", 1)
		if s.Ref.DeclaringType.Value != "java.io.FileInputStream" {
			t.Errorf("DeclaringType = %q", s.Ref.DeclaringType.Value)
		}
		if got := s.Ref.ParameterTypes.Value; !reflect.DeepEqual(got, []string{"java.io.File"}) {
			t.Errorf("ParameterTypes = %v", got)
		}
	})

	t.Run("ambiguous overload falls back to argument types", func(t *testing.T) {
		s := siteOf(t, m, "com.acme.io.Files2", "b", 0)
		if s.Ref.Target != nil {
			t.Error("ambiguous call should not bind")
		}
		want := []string{"java.lang.String", "java.lang.String"}
		if !s.Ref.ParameterTypes.OK || !reflect.DeepEqual(s.Ref.ParameterTypes.Value, want) {
			t.Errorf("ParameterTypes = %+v", s.Ref.ParameterTypes)
		}
		if s.Ref.ParameterNames.OK {
			t.Error("ParameterNames should be unresolved")
		}
	})

	t.Run("unknown receiver", func(t *testing.T) {
		s := siteOf(t, m, "com.acme.io.Files2", "b", 1)
		if s.Ref.DeclaringType.OK {
			t.Errorf("DeclaringType = %q, want unresolved", s.Ref.DeclaringType.Value)
		}
		if s.Ref.DeclaringType.Reason == "" {
			t.Error("unresolved field should carry a reason")
		}
		if !reflect.DeepEqual(s.Ref.ParameterTypes.Value, []string{"int"}) {
			t.Errorf("ParameterTypes = %v", s.Ref.ParameterTypes.Value)
		}
	})
}

func TestBuildModel_FirstDeclarationWins(t *testing.T) {
	dir := t.TempDir()
	first := writeJava(t, dir, "A.java", "package p;\npublic class Dup { void one() {} }\n")
	second := writeJava(t, dir, "B.java", "package p;\npublic class Dup { void two() {} }\n")

	m, err := BuildModel(context.Background(), []string{first, second})
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}
	td, ok := m.Type("p.Dup")
	if !ok {
		t.Fatal("p.Dup not indexed")
	}
	if td.File.Path != first {
		t.Errorf("p.Dup from %s, want %s", td.File.Path, first)
	}
	if len(m.Files) != 2 {
		t.Errorf("Files = %d, want 2", len(m.Files))
	}
}

func TestBuildModel_UnreadableFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	good := writeJava(t, dir, "Good.java", "package p;\nclass Good { class In {} }\n")
	missing := filepath.Join(dir, "Missing.java")

	m, err := BuildModel(context.Background(), []string{missing, good})
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}
	if len(m.FileErrors) != 1 || m.FileErrors[0].Path != missing {
		t.Errorf("FileErrors = %+v", m.FileErrors)
	}
	if _, ok := m.Type("p.Good.In"); !ok {
		t.Error("canonical nested name should resolve")
	}
	if _, ok := m.Type("p.Good$In"); !ok {
		t.Error("binary nested name should resolve")
	}
}

func TestBuildModel_Canceled(t *testing.T) {
	dir := t.TempDir()
	path := writeJava(t, dir, "A.java", "class A {}")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BuildModel(ctx, []string{path}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBuildModel_GenericReturnInferredFromArgument(t *testing.T) {
	src := `package p;

import java.io.FileReader;

class G {
    static <T> T id(T x) { return x; }

    static <T extends CharSequence> T first(T[] xs) { return xs[0]; }

    void take(Integer i) {}

    void take(String s) {}

    void m(String s, String[] all) throws Exception {
        new FileReader(id(s));
        new FileReader(first(all));
        take(id(1));
    }
}
`
	dir := t.TempDir()
	path := writeJava(t, dir, "G.java", src)
	m, err := BuildModel(context.Background(), []string{path}, WithExternalSignatures(fileReaderSignatures))
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}

	tests := []struct {
		name string
		site int
		want []string
	}{
		{"plain type variable", 0, []string{"java.lang.String"}},
		{"array of type variable", 2, []string{"java.lang.String"}},
		{"primitive argument is boxed", 4, []string{"java.lang.Integer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := siteOf(t, m, "p.G", "m", tt.site)
			if !s.Ref.ParameterTypes.OK || !reflect.DeepEqual(s.Ref.ParameterTypes.Value, tt.want) {
				t.Errorf("ParameterTypes = %+v, want %v", s.Ref.ParameterTypes, tt.want)
			}
		})
	}

	if s := siteOf(t, m, "p.G", "m", 0); s.Ref.DeclaringType.Value != "java.io.FileReader" {
		t.Errorf("DeclaringType = %q", s.Ref.DeclaringType.Value)
	}
}
