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
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed jdk.yaml
var defaultJDKYAML []byte

// jdkKnowledge is the table of well-known platform types.
//
// Immutable after load; safe for concurrent use.
type jdkKnowledge struct {
	JavaLang   []string                     `yaml:"java_lang"`
	Packages   map[string][]string          `yaml:"packages"`
	Supertypes map[string][]string          `yaml:"supertypes"`
	Returns    map[string]map[string]string `yaml:"returns"`

	javaLang  map[string]bool
	byPackage map[string]map[string]bool
}

var (
	cachedJDK *jdkKnowledge
	jdkOnce   sync.Once
	jdkErr    error
)

// loadJDKKnowledge parses and caches the embedded platform type table.
func loadJDKKnowledge() (*jdkKnowledge, error) {
	jdkOnce.Do(func() {
		var k jdkKnowledge
		if err := yaml.Unmarshal(defaultJDKYAML, &k); err != nil {
			jdkErr = fmt.Errorf("parsing jdk.yaml: %w", err)
			return
		}
		k.javaLang = make(map[string]bool, len(k.JavaLang))
		for _, n := range k.JavaLang {
			k.javaLang[n] = true
		}
		k.byPackage = make(map[string]map[string]bool, len(k.Packages))
		for pkg, names := range k.Packages {
			set := make(map[string]bool, len(names))
			for _, n := range names {
				set[n] = true
			}
			k.byPackage[pkg] = set
		}
		cachedJDK = &k
	})
	return cachedJDK, jdkErr
}

func (k *jdkKnowledge) isJavaLang(name string) bool {
	return k != nil && k.javaLang[name]
}

func (k *jdkKnowledge) inPackage(pkg, name string) bool {
	return k != nil && k.byPackage[pkg][name]
}

// isSubtype reports whether sub reaches target through the supertype table.
func (k *jdkKnowledge) isSubtype(sub, target string) bool {
	if k == nil {
		return false
	}
	seen := map[string]bool{}
	queue := []string{sub}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if t == target {
			return true
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		queue = append(queue, k.Supertypes[t]...)
	}
	return false
}

// returnType looks up a method's return type on t, its known supertypes, and
// java.lang.Object.
func (k *jdkKnowledge) returnType(t, method string) (string, bool) {
	if k == nil {
		return "", false
	}
	seen := map[string]bool{}
	queue := []string{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if rt, ok := k.Returns[cur][method]; ok {
			return rt, true
		}
		queue = append(queue, k.Supertypes[cur]...)
	}
	rt, ok := k.Returns["java.lang.Object"][method]
	return rt, ok
}
