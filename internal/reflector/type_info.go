// Package reflector names Go types for logs and error messages, caching
// the result per type.
package reflector

import (
	"reflect"
	"strings"
	"sync"
)

var (
	muCache sync.RWMutex
	cache   = make(map[reflect.Type]TypeInfo)
)

type TypeInfo struct {
	Name string // "pkg/path.TypeName", or the type literal for unnamed types
	Type reflect.Type
}

func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeFor[T]())
}

// TypeInfoForType describes t. Pointer types are described by their
// element type.
func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	muCache.RLock()
	ti, ok := cache[t]
	muCache.RUnlock()
	if ok {
		return ti
	}

	ti = TypeInfo{Name: nameOf(t), Type: t}

	muCache.Lock()
	cache[t] = ti
	muCache.Unlock()
	return ti
}

// Signature renders the parameter list of a callback taking the given
// types, e.g. "(int, string)".
func Signature(types ...reflect.Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		if t == nil {
			sb.WriteString("<nil>")
			continue
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func nameOf(t reflect.Type) string {
	// builtins and type literals have no package path
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
