package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ExpandTemplates rewrites, in place, every string and *string field of the
// struct pointed to by in that carries a `template` tag, replacing ${VAR}
// references from variables. Values of map[string]string fields are always
// expanded. Nested structs, non-nil struct pointers and slices of structs are
// walked whether tagged or not; `template:"-"` skips a field. Unexported
// fields are left alone.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}

	v := reflect.ValueOf(in).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("ExpandTemplates expects *struct; got *%s", v.Type())
	}
	return expandStruct(v, variables)
}

func expandStruct(v reflect.Value, variables map[string]string) error {
	typ := v.Type()
	var errs error

	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, tagged := sf.Tag.Lookup("template")
		if tag == "-" {
			continue
		}

		if err := expandField(v.Field(i), tagged, variables); err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", sf.Name, err))
		}
	}

	return errs
}

func expandField(field reflect.Value, tagged bool, variables map[string]string) error {
	switch field.Kind() {
	case reflect.String:
		if !tagged {
			return nil
		}
		return expandString(field, variables)

	case reflect.Ptr:
		if field.IsNil() {
			return nil
		}
		elem := field.Elem()
		switch elem.Kind() {
		case reflect.String:
			if !tagged {
				return nil
			}
			expanded, err := Expand(elem.String(), variables)
			if err != nil {
				return err
			}
			// Replace the pointer so values shared with the caller stay untouched.
			field.Set(reflect.ValueOf(&expanded))
			return nil
		case reflect.Struct:
			return expandStruct(elem, variables)
		}

	case reflect.Struct:
		return expandStruct(field, variables)

	case reflect.Map:
		if field.IsNil() || field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		values, ok := field.Interface().(map[string]string)
		if !ok {
			return nil
		}
		expanded, err := ExpandMap(values, variables)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(expanded))
		return nil

	case reflect.Slice:
		var errs error
		for i := range field.Len() {
			el := field.Index(i)
			switch {
			case el.Kind() == reflect.Struct:
				errs = errors.Join(errs, expandStruct(el, variables))
			case el.Kind() == reflect.Ptr && !el.IsNil() && el.Elem().Kind() == reflect.Struct:
				errs = errors.Join(errs, expandStruct(el.Elem(), variables))
			case el.Kind() == reflect.String && tagged:
				errs = errors.Join(errs, expandString(el, variables))
			}
		}
		return errs
	}

	return nil
}

func expandString(v reflect.Value, variables map[string]string) error {
	expanded, err := Expand(v.String(), variables)
	if err != nil {
		return err
	}
	v.SetString(expanded)
	return nil
}

// Expand replaces ${VAR} references in value using variables.
// Returns an error if any referenced variable is not in the variables map.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}

// ExpandMap expands all values in a map[string]string into a new map.
func ExpandMap(values map[string]string, variables map[string]string) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}

	result := make(map[string]string, len(values))
	var errs error
	for k, v := range values {
		expanded, err := Expand(v, variables)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		result[k] = expanded
	}

	if errs != nil {
		return nil, errs
	}
	return result, nil
}
