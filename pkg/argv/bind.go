// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// FieldError is returned by Bind when a parsed value cannot be stored in a
// struct field. UserMsg is the message to show; Err keeps the wrapped chain.
type FieldError struct {
	Name    string // option name or param label
	Field   string // struct field name
	Value   string
	UserMsg string
	Err     error
}

func (e *FieldError) Error() string {
	return e.UserMsg
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	urlType      = reflect.TypeOf(url.URL{})
)

// SchemaOf derives a Schema from the struct tags of T:
//
//	type Flags struct {
//	    Verbose int      `flag:"verbose" short:"v" count:"true" help:"More output"`
//	    Output  string   `flag:"output" short:"o" default:"out.txt"`
//	    Tags    []string `flag:"tag" arity:"2"`
//	    Level   string   `flag:"level" choices:"debug,info,warn"`
//	    Src     string   `pos:"0" help:"Source file"`
//	    Dst     string   `pos:"1?" default:"."`
//	    Extra   []string `pos:"2*"`
//	}
//
// Fields without a flag tag use the lowercased field name, and flag:"-"
// skips a field. pos:"N" is a required param, pos:"N?" an optional one, and
// pos:"N*" / pos:"N+" a trailing slice that turns on variadic params.
func SchemaOf[T any]() (*Schema, error) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("argv: SchemaOf needs a struct type, got %s", t)
	}

	s := &Schema{Options: make(map[string]*OptionSpec)}
	params := make(map[int]*ParamSpec)
	variadicAt := -1
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		if posTag := field.Tag.Get("pos"); posTag != "" {
			pos, required, variadic, err := parsePosTag(posTag)
			if err != nil {
				return nil, fmt.Errorf("argv: field %s: %w", field.Name, err)
			}
			typ, multiple, err := typeOf(field.Type)
			if err != nil {
				return nil, fmt.Errorf("argv: field %s: %w", field.Name, err)
			}
			if multiple != variadic {
				return nil, fmt.Errorf("argv: field %s: slice params need pos:\"%d*\" or pos:\"%d+\"", field.Name, pos, pos)
			}
			if _, dup := params[pos]; dup {
				return nil, fmt.Errorf("argv: field %s: position %d is redefined", field.Name, pos)
			}
			p := &ParamSpec{
				Type:        typ,
				Label:       strings.ToUpper(field.Name),
				Description: field.Tag.Get("help"),
				Required:    required,
			}
			if d := field.Tag.Get("default"); d != "" {
				p.Default = d
			}
			if variadic {
				variadicAt = pos
				s.Variadic = true
			}
			params[pos] = p
			continue
		}

		name := field.Tag.Get("flag")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		if _, dup := s.Options[name]; dup {
			return nil, fmt.Errorf("argv: field %s: option %q is redefined", field.Name, name)
		}
		typ, multiple, err := typeOf(field.Type)
		if err != nil {
			return nil, fmt.Errorf("argv: field %s: %w", field.Name, err)
		}
		o := &OptionSpec{
			Type:        typ,
			Description: field.Tag.Get("help"),
			Multiple:    multiple,
			Short:       field.Tag.Get("short"),
			Deprecated:  field.Tag.Get("deprecated"),
			Hidden:      field.Tag.Get("hidden") == "true",
			Category:    field.Tag.Get("category"),
			Count:       field.Tag.Get("count") == "true",
		}
		if d := field.Tag.Get("default"); d != "" {
			if multiple {
				o.Default = strings.Split(d, ",")
			} else {
				o.Default = d
			}
		}
		if c := field.Tag.Get("choices"); c != "" {
			o.Choices = strings.Split(c, ",")
		}
		if a := field.Tag.Get("arity"); a != "" {
			n, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("argv: field %s: invalid arity %q", field.Name, a)
			}
			o.Arity = n
		}
		s.Options[name] = o
	}

	for pos := 0; pos < len(params); pos++ {
		p, ok := params[pos]
		if !ok {
			return nil, fmt.Errorf("argv: positions must be contiguous from 0, missing %d", pos)
		}
		if variadicAt >= 0 && pos > variadicAt {
			return nil, fmt.Errorf("argv: variadic param at %d must be last", variadicAt)
		}
		s.Params = append(s.Params, p)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// parsePosTag parses "0", "0?", "0*" and "0+".
func parsePosTag(tag string) (pos int, required, variadic bool, err error) {
	posStr := tag
	switch {
	case strings.HasSuffix(tag, "?"):
		posStr = strings.TrimSuffix(tag, "?")
	case strings.HasSuffix(tag, "*"):
		variadic = true
		posStr = strings.TrimSuffix(tag, "*")
	case strings.HasSuffix(tag, "+"):
		variadic = true
		required = true
		posStr = strings.TrimSuffix(tag, "+")
	default:
		required = true
	}
	pos, err = strconv.Atoi(posStr)
	if err != nil || pos < 0 {
		return 0, false, false, fmt.Errorf("invalid pos tag %q", tag)
	}
	return pos, required, variadic, nil
}

// typeOf maps a Go field type to a schema Type.
func typeOf(t reflect.Type) (typ Type, multiple bool, err error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == durationType || t == urlType {
		return String, false, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return Boolean, false, nil
	case reflect.String:
		return String, false, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number, false, nil
	case reflect.Slice:
		et, nested, err := typeOf(t.Elem())
		if err != nil {
			return 0, false, err
		}
		if nested {
			return 0, false, fmt.Errorf("nested slices are not supported")
		}
		return et, true, nil
	}
	return 0, false, fmt.Errorf("unsupported field type %s", t)
}

// Bind decodes r into a new T using the same tags as SchemaOf. Options
// and params absent from r leave their fields at the zero value.
func Bind[T any](r *Result) (T, error) {
	var out T
	v := reflect.ValueOf(&out).Elem()
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return out, fmt.Errorf("argv: Bind needs a struct type, got %s", v.Type())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if posTag := field.Tag.Get("pos"); posTag != "" {
			pos, _, variadic, err := parsePosTag(posTag)
			if err != nil || pos >= len(r.Params) {
				continue
			}
			label := strings.ToUpper(field.Name)
			if variadic {
				vals := make([]string, 0, len(r.Params)-pos)
				for _, p := range r.Params[pos:] {
					vals = append(vals, formatValue(p))
				}
				if err := bindField(fv, field.Name, label, vals); err != nil {
					return out, err
				}
				continue
			}
			if err := bindField(fv, field.Name, label, []string{formatValue(r.Params[pos])}); err != nil {
				return out, err
			}
			continue
		}

		name := field.Tag.Get("flag")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		val, ok := r.Options[name]
		if !ok {
			continue
		}
		if err := bindField(fv, field.Name, name, valueStrings(val)); err != nil {
			return out, err
		}
	}
	return out, nil
}

func bindField(fv reflect.Value, fieldName, name string, vals []string) error {
	var err error
	var value string
	if fv.Kind() == reflect.Slice {
		slice := reflect.MakeSlice(fv.Type(), len(vals), len(vals))
		for i, s := range vals {
			if err = setFieldValue(slice.Index(i), s); err != nil {
				value = s
				break
			}
		}
		if err == nil {
			fv.Set(slice)
			return nil
		}
	} else {
		if len(vals) > 0 {
			value = vals[len(vals)-1]
		}
		if err = setFieldValue(fv, value); err == nil {
			return nil
		}
	}
	return &FieldError{
		Name:    name,
		Field:   fieldName,
		Value:   value,
		UserMsg: err.Error(),
		Err:     fmt.Errorf("failed to set field %s: %w", fieldName, err),
	}
}

// setFieldValue sets a struct field value from its command-line spelling.
func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
		return nil

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value %q: %w", value, err)
		}
		field.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", value, err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q: %w", value, err)
		}
		field.SetInt(i)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q: %w", value, err)
		}
		field.SetUint(u)
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q: %w", value, err)
		}
		field.SetFloat(f)
		return nil

	case reflect.Ptr:
		if field.Type() == reflect.PointerTo(urlType) {
			u, err := url.Parse(value)
			if err != nil {
				return fmt.Errorf("invalid URL %q: %w", value, err)
			}
			field.Set(reflect.ValueOf(u))
			return nil
		}
		newValue := reflect.New(field.Type().Elem())
		if err := setFieldValue(newValue.Elem(), value); err != nil {
			return err
		}
		field.Set(newValue)
		return nil

	case reflect.Struct:
		if field.Type() == urlType {
			u, err := url.Parse(value)
			if err != nil {
				return fmt.Errorf("invalid URL %q: %w", value, err)
			}
			field.Set(reflect.ValueOf(*u))
			return nil
		}
		return fmt.Errorf("unsupported struct type %s", field.Type())

	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
}
