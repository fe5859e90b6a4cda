package solrq

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

const tagKey = "solr"

// Point is the value of a location field.
type Point = field.Point

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
type schemaMeta struct {
	typ   reflect.Type
	idIdx int
	// ptr is set when T itself is a pointer type.
	ptr    bool
	fields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	field     field.Field
	// list is set for slice-typed struct fields.
	list bool
}

// parseSchema reflects on T and extracts solr struct tag metadata. Tags read
// `solr:"name,type[,multiple][,stored][,ref=Class][,boost=N]"`; the primary
// key is tagged `solr:"name,id"`.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("solrq: type parameter is an interface")
	}
	meta := &schemaMeta{idIdx: -1}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		meta.ptr = true
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("solrq: type %s is not a struct", t)
	}
	meta.typ = t

	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if !sf.IsExported() {
			return nil, fmt.Errorf("solrq: tagged field %s is not exported", sf.Name)
		}
		if err := applyTag(meta, i, sf, tag); err != nil {
			return nil, err
		}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("solrq: no field with `solr:\"...,id\"` tag in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's solr tag.
func applyTag(meta *schemaMeta, idx int, sf reflect.StructField, tag string) error {
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = strings.ToLower(sf.Name)
	}
	if len(parts) < 2 {
		return fmt.Errorf("solrq: field %s: missing type in tag %q", sf.Name, tag)
	}

	if parts[1] == "id" {
		if meta.idIdx != -1 {
			return fmt.Errorf("solrq: duplicate id tag on field %s", sf.Name)
		}
		meta.idIdx = idx
		return nil
	}

	ft, err := field.ParseType(parts[1])
	if err != nil {
		return fmt.Errorf("solrq: field %s: %w", sf.Name, err)
	}
	var opts []field.Option
	for _, mod := range parts[2:] {
		key, val, _ := strings.Cut(mod, "=")
		switch key {
		case "multiple":
			opts = append(opts, field.Multiple())
		case "stored":
			opts = append(opts, field.Stored())
		case "ref":
			opts = append(opts, field.Reference(val))
		case "boost":
			b, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("solrq: field %s: boost %q: %w", sf.Name, val, err)
			}
			opts = append(opts, field.Boost(b))
		default:
			return fmt.Errorf("solrq: unknown modifier %q on field %s", mod, sf.Name)
		}
	}
	f, err := field.New(name, ft, opts...)
	if err != nil {
		return fmt.Errorf("solrq: field %s: %w", sf.Name, err)
	}
	list := sf.Type.Kind() == reflect.Slice
	if f.Multiple() && !list {
		return fmt.Errorf("solrq: field %s: multiple needs a slice type", sf.Name)
	}
	if list && !f.Multiple() && !f.IsText() {
		return fmt.Errorf("solrq: field %s: slice type needs the multiple modifier", sf.Name)
	}
	meta.fields = append(meta.fields, fieldMapping{structIdx: idx, field: f, list: list})
	return nil
}

// setup builds the class setup: fields read from the struct, primary keys
// from the id field.
func (m *schemaMeta) setup(className string, acc setup.DataAccessor) (*setup.Setup, error) {
	b := setup.NewBuilder(className).Identity(structAdapter{meta: m})
	for _, fm := range m.fields {
		structIdx := fm.structIdx
		b.Add(fm.field, func(obj any) (any, error) {
			v, err := m.value(obj)
			if err != nil {
				return nil, err
			}
			return v.Field(structIdx).Interface(), nil
		})
	}
	if acc != nil {
		b.Accessor(acc)
	}
	return b.Build()
}

// value returns the struct value behind obj.
func (m *schemaMeta) value(obj any) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil %s", m.typ)
		}
		v = v.Elem()
	}
	if v.Type() != m.typ {
		return reflect.Value{}, fmt.Errorf("expected %s, got %T", m.typ, obj)
	}
	return v, nil
}

// structAdapter reads primary keys from the id field.
type structAdapter struct {
	meta *schemaMeta
}

// PrimaryKey implements setup.InstanceAdapter.
func (a structAdapter) PrimaryKey(obj any) (string, error) {
	v, err := a.meta.value(obj)
	if err != nil {
		return "", err
	}
	id := v.Field(a.meta.idIdx)
	if id.Kind() == reflect.String {
		return id.String(), nil
	}
	return fmt.Sprint(id.Interface()), nil
}

// toRecord flattens item into a record of wire strings: one string per
// single-valued field and a JSON array for multi-valued ones.
func (m *schemaMeta) toRecord(className string, item any) (*setup.Record, error) {
	pk, err := structAdapter{meta: m}.PrimaryKey(item)
	if err != nil {
		return nil, err
	}
	v, _ := m.value(item)
	rec := &setup.Record{Class: className, ID: pk, Fields: make(map[string]any, len(m.fields))}
	for _, fm := range m.fields {
		values, err := fm.field.IndexValues(v.Field(fm.structIdx).Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fm.field.Name(), err)
		}
		switch {
		case len(values) == 0:
		case fm.list:
			raw, err := json.Marshal(values)
			if err != nil {
				return nil, err
			}
			rec.Fields[fm.field.Name()] = string(raw)
		default:
			rec.Fields[fm.field.Name()] = values[0]
		}
	}
	return rec, nil
}

// fromRecord rebuilds an item from a record written by toRecord.
func (m *schemaMeta) fromRecord(rec *setup.Record) (any, error) {
	values := make(map[string]any, len(rec.Fields))
	for _, fm := range m.fields {
		raw, ok := rec.Fields[fm.field.Name()].(string)
		if !ok {
			continue
		}
		if !fm.list {
			cast, err := fm.field.Cast(raw)
			if err != nil {
				return nil, err
			}
			values[fm.field.Name()] = cast
			continue
		}
		var wire []string
		if err := json.Unmarshal([]byte(raw), &wire); err != nil {
			return nil, fmt.Errorf("field %s: %w", fm.field.Name(), err)
		}
		list := make([]any, 0, len(wire))
		for _, w := range wire {
			cast, err := fm.field.Cast(w)
			if err != nil {
				return nil, err
			}
			list = append(list, cast)
		}
		values[fm.field.Name()] = list
	}
	return m.build(rec.ID, values)
}

// build creates an item with id and the given field values keyed by field
// name. Absent fields keep their zero value.
func (m *schemaMeta) build(id string, values map[string]any) (any, error) {
	v := reflect.New(m.typ).Elem()
	if err := assign(v.Field(m.idIdx), id); err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	for _, fm := range m.fields {
		val, ok := values[fm.field.Name()]
		if !ok || val == nil {
			continue
		}
		if err := assign(v.Field(fm.structIdx), val); err != nil {
			return nil, fmt.Errorf("field %s: %w", fm.field.Name(), err)
		}
	}
	if m.ptr {
		return v.Addr().Interface(), nil
	}
	return v.Interface(), nil
}

// assign stores val into dst, converting numbers, strings and lists.
func assign(dst reflect.Value, val any) error {
	if dst.Kind() == reflect.Slice {
		src := reflect.ValueOf(val)
		if src.Kind() != reflect.Slice {
			src = reflect.ValueOf([]any{val})
		}
		out := reflect.MakeSlice(dst.Type(), src.Len(), src.Len())
		for i := range src.Len() {
			if err := assign(out.Index(i), src.Index(i).Interface()); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	}

	src := reflect.ValueOf(val)
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case dst.Kind() == reflect.String:
		dst.SetString(fmt.Sprint(val))
	case src.Kind() == reflect.String:
		return assignString(dst, src.String())
	case src.Type().ConvertibleTo(dst.Type()) && isNumber(src.Kind()) == isNumber(dst.Kind()):
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", val, dst.Type())
	}
	return nil
}

func assignString(dst reflect.Value, s string) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	default:
		return fmt.Errorf("cannot assign string to %s", dst.Type())
	}
	return nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
