package guard

import (
	"fmt"
	"reflect"
	"strings"

	"required-backend/internal/requires"
)

// structRecord flattens a struct into a record in field declaration order.
func structRecord(v any) (*requires.Fields, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("guard: nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if val, ok := present(iter.Value()); ok {
				m[iter.Key().String()] = val
			}
		}
		return requires.FromMap(m), nil
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("guard: unsupported argument type %T", v)
	}

	rec := &requires.Fields{}
	addFields(rec, rv)
	return rec, nil
}

func addFields(rec *requires.Fields, rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name, skip := fieldName(sf)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if sf.Anonymous && name == "" {
			for fv.Kind() == reflect.Pointer && !fv.IsNil() {
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				addFields(rec, fv)
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if val, ok := present(fv); ok {
			rec.Set(name, val)
		}
	}
}

// fieldName returns the json name of sf, empty when untagged.
func fieldName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return "", true
	}
	return name, false
}

// present dereferences v and reports whether it holds a value.
func present(v reflect.Value) (any, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, false
		}
	case reflect.Invalid:
		return nil, false
	}
	if !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}
