package restclient

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/KarpelesLab/pjson"
)

// JSON bodies are encoded with reference preservation: a pointer (to a
// struct or a map) that is reached more than once in the value graph is
// written in full the first time with an extra "$id" member, and as
// {"$ref":"<id>"} every time after that. Values without shared pointers
// produce exactly what pjson would.
//
// On decode, a document holding "$ref" or "$id" anywhere is read as a
// reference graph, so an object member named "$id" is consumed as an
// identifier and never reaches the target.

type contextMarshaler interface {
	MarshalContextJSON(ctx context.Context) ([]byte, error)
}

type contextUnmarshaler interface {
	UnmarshalContextJSON(ctx context.Context, data []byte) error
}

var (
	marshalerType            = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType        = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	contextMarshalerType     = reflect.TypeOf((*contextMarshaler)(nil)).Elem()
	unmarshalerType          = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	textUnmarshalerType      = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	contextUnmarshalerType   = reflect.TypeOf((*contextUnmarshaler)(nil)).Elem()
	anyMapType               = reflect.TypeOf((*map[string]any)(nil)).Elem()
	errUnresolvableReference = errors.New("reference cycle cannot be represented by value")
)

type refKey struct {
	ptr uintptr
	typ reflect.Type
}

type graphEncoder struct {
	ctx   context.Context
	buf   bytes.Buffer
	seen  map[refKey]int
	ids   map[refKey]string
	stack map[refKey]bool
	next  int
}

func marshalGraph(ctx context.Context, v any) ([]byte, error) {
	e := &graphEncoder{
		ctx:   ctx,
		seen:  make(map[refKey]int),
		ids:   make(map[refKey]string),
		stack: make(map[refKey]bool),
	}
	rv := reflect.ValueOf(v)
	e.count(rv)
	clear(e.stack)
	if err := e.encode(rv); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

func encodesAsLeaf(t reflect.Type) bool {
	if t.Implements(marshalerType) || t.Implements(textMarshalerType) || t.Implements(contextMarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	}
	return false
}

func addrEncodesAsLeaf(v reflect.Value) bool {
	if !v.CanAddr() || v.Kind() == reflect.Pointer {
		return false
	}
	pt := reflect.PointerTo(v.Type())
	return pt.Implements(marshalerType) || pt.Implements(textMarshalerType) || pt.Implements(contextMarshalerType)
}

// objectKey returns the identity of pointers that encode as JSON objects.
func objectKey(v reflect.Value) (refKey, bool) {
	switch v.Kind() {
	case reflect.Map:
		return refKey{v.Pointer(), v.Type()}, true
	case reflect.Pointer:
		el := v.Type().Elem()
		switch el.Kind() {
		case reflect.Map:
			return refKey{v.Pointer(), v.Type()}, true
		case reflect.Struct:
			if el.Size() == 0 {
				return refKey{}, false
			}
			return refKey{v.Pointer(), v.Type()}, true
		}
	}
	return refKey{}, false
}

// count walks the graph in encoding order and records how often every
// object pointer is reached.
func (e *graphEncoder) count(v reflect.Value) {
	if !v.IsValid() || encodesAsLeaf(v.Type()) || addrEncodesAsLeaf(v) {
		return
	}
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			e.count(v.Elem())
		}
	case reflect.Pointer, reflect.Map:
		if v.IsNil() {
			return
		}
		if k, ok := objectKey(v); ok {
			e.seen[k]++
			if e.seen[k] > 1 {
				return
			}
		} else {
			k := refKey{v.Pointer(), v.Type()}
			if e.stack[k] {
				return
			}
			e.stack[k] = true
			defer delete(e.stack, k)
		}
		if v.Kind() == reflect.Pointer {
			e.count(v.Elem())
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			e.count(iter.Value())
		}
	case reflect.Struct:
		for _, f := range cachedFields(v.Type()) {
			if fv, ok := fieldByIndex(v, f.index); ok {
				e.count(fv)
			}
		}
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return
		}
		k := refKey{v.Pointer(), v.Type()}
		if e.stack[k] {
			return
		}
		e.stack[k] = true
		defer delete(e.stack, k)
		fallthrough
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			e.count(v.Index(i))
		}
	}
}

func (e *graphEncoder) leaf(v any) error {
	b, err := pjson.MarshalContext(e.ctx, v)
	if err != nil {
		return err
	}
	e.buf.Write(b)
	return nil
}

func (e *graphEncoder) encode(v reflect.Value) error {
	if !v.IsValid() {
		e.buf.WriteString("null")
		return nil
	}
	if addrEncodesAsLeaf(v) {
		return e.leaf(v.Addr().Interface())
	}
	if encodesAsLeaf(v.Type()) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.leaf(v.Interface())
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.encode(v.Elem())
	case reflect.Pointer, reflect.Map:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		k, isObject := objectKey(v)
		if !isObject {
			// only reachable for pointers to non objects, guard loops
			k = refKey{v.Pointer(), v.Type()}
			if e.stack[k] {
				e.buf.WriteString("null")
				return nil
			}
			e.stack[k] = true
			defer delete(e.stack, k)
			return e.encode(v.Elem())
		}
		if id, ok := e.ids[k]; ok {
			fmt.Fprintf(&e.buf, `{"$ref":%q}`, id)
			return nil
		}
		var id string
		if e.seen[k] > 1 {
			e.next++
			id = strconv.Itoa(e.next)
			e.ids[k] = id
		}
		obj := v
		if v.Kind() == reflect.Pointer {
			obj = v.Elem()
		}
		if obj.Kind() == reflect.Map {
			return e.encodeMap(obj, id)
		}
		return e.encodeStruct(obj, id)
	case reflect.Struct:
		return e.encodeStruct(v, "")
	case reflect.Slice:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if v.Len() > 0 {
			k := refKey{v.Pointer(), v.Type()}
			if e.stack[k] {
				e.buf.WriteString("null")
				return nil
			}
			e.stack[k] = true
			defer delete(e.stack, k)
		}
		return e.encodeArray(v)
	case reflect.Array:
		return e.encodeArray(v)
	default:
		return &json.UnsupportedTypeError{Type: v.Type()}
	}
}

func (e *graphEncoder) encodeArray(v reflect.Value) error {
	e.buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(v.Index(i)); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *graphEncoder) writeID(id string) bool {
	if id == "" {
		return false
	}
	fmt.Fprintf(&e.buf, `"$id":%q`, id)
	return true
}

func (e *graphEncoder) encodeStruct(v reflect.Value, id string) error {
	e.buf.WriteByte('{')
	wrote := e.writeID(id)
	for _, f := range cachedFields(v.Type()) {
		fv, ok := fieldByIndex(v, f.index)
		if !ok {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if wrote {
			e.buf.WriteByte(',')
		}
		wrote = true
		e.buf.Write(f.key)
		e.buf.WriteByte(':')
		if f.quoted && encodesAsLeaf(fv.Type()) && fv.Kind() != reflect.String {
			b, err := pjson.MarshalContext(e.ctx, fv.Interface())
			if err != nil {
				return err
			}
			q, _ := pjson.Marshal(string(b))
			e.buf.Write(q)
			continue
		}
		if err := e.encode(fv); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *graphEncoder) encodeMap(v reflect.Value, id string) error {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := mapKeyString(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, entry{k, iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	e.buf.WriteByte('{')
	wrote := e.writeID(id)
	for _, ent := range entries {
		if wrote {
			e.buf.WriteByte(',')
		}
		wrote = true
		kb, err := pjson.Marshal(ent.key)
		if err != nil {
			return err
		}
		e.buf.Write(kb)
		e.buf.WriteByte(':')
		if err := e.encode(ent.val); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func mapKeyString(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", &json.UnsupportedTypeError{Type: k.Type()}
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

// struct field metadata, following encoding/json tag rules

type graphField struct {
	name      string
	key       []byte
	index     []int
	tagged    bool
	omitEmpty bool
	quoted    bool
}

var fieldCache sync.Map // reflect.Type → []graphField

func cachedFields(t reflect.Type) []graphField {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]graphField)
	}
	f, _ := fieldCache.LoadOrStore(t, typeFields(t))
	return f.([]graphField)
}

func typeFields(t reflect.Type) []graphField {
	var all []graphField
	collectFields(t, nil, map[reflect.Type]bool{}, &all)

	// dominant field per name: shallowest, then tagged
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].name != all[j].name {
			return all[i].name < all[j].name
		}
		if len(all[i].index) != len(all[j].index) {
			return len(all[i].index) < len(all[j].index)
		}
		return all[i].tagged && !all[j].tagged
	})
	var out []graphField
	for i := 0; i < len(all); {
		j := i + 1
		for j < len(all) && all[j].name == all[i].name {
			j++
		}
		group := all[i:j]
		if len(group) == 1 || len(group[0].index) < len(group[1].index) || (group[0].tagged && !group[1].tagged) {
			out = append(out, group[0])
		}
		i = j
	}

	sort.Slice(out, func(i, j int) bool { return lessIndex(out[i].index, out[j].index) })
	for i := range out {
		out[i].key, _ = pjson.Marshal(out[i].name)
	}
	return out
}

func lessIndex(a, b []int) bool {
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}

func collectFields(t reflect.Type, index []int, visited map[reflect.Type]bool, out *[]graphField) {
	if visited[t] {
		return
	}
	visited[t] = true
	defer delete(visited, t)

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		idx := append(append([]int(nil), index...), i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if !sf.IsExported() && sf.Type.Kind() == reflect.Pointer {
					continue
				}
				collectFields(ft, idx, visited, out)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		f := graphField{name: name, index: idx, tagged: name != ""}
		if f.name == "" {
			f.name = sf.Name
		}
		for _, o := range strings.Split(opts, ",") {
			switch o {
			case "omitempty":
				f.omitEmpty = true
			case "string":
				f.quoted = true
			}
		}
		*out = append(*out, f)
	}
}

// fieldByIndex walks embedded pointers, reporting false on a nil one.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// fieldForSet walks embedded pointers, allocating nil ones.
func fieldForSet(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// decoding

type builtKey struct {
	id  string
	typ reflect.Type
}

type graphDecoder struct {
	ctx    context.Context
	ids    map[string]map[string]any
	built  map[builtKey]reflect.Value
	active map[builtKey]bool
	plains map[uintptr]any
}

func unmarshalGraph(ctx context.Context, data []byte, target any) error {
	if !bytes.Contains(data, []byte(`"$ref"`)) && !bytes.Contains(data, []byte(`"$id"`)) {
		return pjson.UnmarshalContext(ctx, data, target)
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &json.InvalidUnmarshalError{Type: reflect.TypeOf(target)}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return err
	}

	d := &graphDecoder{
		ctx:    ctx,
		ids:    make(map[string]map[string]any),
		built:  make(map[builtKey]reflect.Value),
		active: make(map[builtKey]bool),
		plains: make(map[uintptr]any),
	}
	d.index(tree)
	return d.assign(rv.Elem(), tree)
}

func (d *graphDecoder) index(node any) {
	switch n := node.(type) {
	case map[string]any:
		if id, ok := n["$id"].(string); ok {
			d.ids[id] = n
		}
		for _, v := range n {
			d.index(v)
		}
	case []any:
		for _, v := range n {
			d.index(v)
		}
	}
}

func refOf(node any) (string, bool) {
	m, ok := node.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	ref, ok := m["$ref"].(string)
	return ref, ok
}

func decodesAsLeaf(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	if pt.Implements(unmarshalerType) || pt.Implements(textUnmarshalerType) || pt.Implements(contextUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Interface:
		return t.NumMethod() > 0
	}
	return false
}

func (d *graphDecoder) leaf(dst reflect.Value, node any) error {
	b, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return pjson.UnmarshalContext(d.ctx, b, dst.Addr().Interface())
}

func (d *graphDecoder) assign(dst reflect.Value, node any) error {
	if ref, ok := refOf(node); ok {
		target, found := d.ids[ref]
		if !found {
			return fmt.Errorf("unresolved reference $ref %q", ref)
		}
		if dst.Kind() != reflect.Pointer && dst.Kind() != reflect.Map && dst.Kind() != reflect.Interface {
			k := builtKey{ref, dst.Type()}
			if d.active[k] {
				return fmt.Errorf("$ref %q into %s: %w", ref, dst.Type(), errUnresolvableReference)
			}
			d.active[k] = true
			defer delete(d.active, k)
		}
		node = target
	}

	t := dst.Type()
	if decodesAsLeaf(t) {
		return d.leaf(dst, node)
	}

	switch dst.Kind() {
	case reflect.Interface:
		p := d.plain(node)
		if p == nil {
			dst.SetZero()
			return nil
		}
		dst.Set(reflect.ValueOf(p))
		return nil
	case reflect.Pointer:
		if node == nil {
			dst.SetZero()
			return nil
		}
		if m, ok := node.(map[string]any); ok {
			if id, ok := m["$id"].(string); ok {
				k := builtKey{id, t}
				if p, ok := d.built[k]; ok {
					dst.Set(p)
					return nil
				}
				p := reflect.New(t.Elem())
				d.built[k] = p
				dst.Set(p)
				return d.assign(p.Elem(), node)
			}
		}
		if dst.IsNil() {
			dst.Set(reflect.New(t.Elem()))
		}
		return d.assign(dst.Elem(), node)
	case reflect.Struct:
		if node == nil {
			return nil
		}
		m, ok := node.(map[string]any)
		if !ok {
			return d.leaf(dst, node)
		}
		return d.assignStruct(dst, m)
	case reflect.Map:
		if node == nil {
			dst.SetZero()
			return nil
		}
		m, ok := node.(map[string]any)
		if !ok {
			return d.leaf(dst, node)
		}
		return d.assignMap(dst, m)
	case reflect.Slice:
		if node == nil {
			dst.SetZero()
			return nil
		}
		arr, ok := arrayOf(node)
		if !ok {
			return d.leaf(dst, node)
		}
		s := reflect.MakeSlice(t, len(arr), len(arr))
		for i, el := range arr {
			if err := d.assign(s.Index(i), el); err != nil {
				return err
			}
		}
		dst.Set(s)
		return nil
	case reflect.Array:
		arr, ok := arrayOf(node)
		if !ok {
			return d.leaf(dst, node)
		}
		for i := 0; i < dst.Len(); i++ {
			if i >= len(arr) {
				dst.Index(i).SetZero()
				continue
			}
			if err := d.assign(dst.Index(i), arr[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return d.leaf(dst, node)
	}
}

// arrayOf accepts plain arrays and the {"$id":..,"$values":[..]} wrapper.
func arrayOf(node any) ([]any, bool) {
	switch n := node.(type) {
	case []any:
		return n, true
	case map[string]any:
		arr, ok := n["$values"].([]any)
		return arr, ok
	}
	return nil, false
}

func (d *graphDecoder) assignStruct(dst reflect.Value, m map[string]any) error {
	fields := cachedFields(dst.Type())
	for k, val := range m {
		if k == "$id" {
			continue
		}
		f := lookupField(fields, k)
		if f == nil {
			continue
		}
		fv, ok := fieldForSet(dst, f.index)
		if !ok {
			continue
		}
		if s, isStr := val.(string); f.quoted && isStr && fv.Kind() != reflect.String {
			if err := pjson.UnmarshalContext(d.ctx, []byte(s), fv.Addr().Interface()); err != nil {
				return err
			}
			continue
		}
		if err := d.assign(fv, val); err != nil {
			return fmt.Errorf("field %s: %w", f.name, err)
		}
	}
	return nil
}

func lookupField(fields []graphField, name string) *graphField {
	for i := range fields {
		if fields[i].name == name {
			return &fields[i]
		}
	}
	for i := range fields {
		if strings.EqualFold(fields[i].name, name) {
			return &fields[i]
		}
	}
	return nil
}

func (d *graphDecoder) assignMap(dst reflect.Value, m map[string]any) error {
	t := dst.Type()
	id, hasID := m["$id"].(string)
	if hasID {
		if existing, ok := d.built[builtKey{id, t}]; ok {
			dst.Set(existing)
			return nil
		}
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMapWithSize(t, len(m)))
	}
	if hasID {
		d.built[builtKey{id, t}] = dst
	}

	for k, val := range m {
		if k == "$id" {
			continue
		}
		kv := reflect.New(t.Key()).Elem()
		if err := setMapKey(kv, k); err != nil {
			return err
		}
		ev := reflect.New(t.Elem()).Elem()
		if err := d.assign(ev, val); err != nil {
			return err
		}
		dst.SetMapIndex(kv, ev)
	}
	return nil
}

func setMapKey(kv reflect.Value, k string) error {
	if tu, ok := kv.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return tu.UnmarshalText([]byte(k))
	}
	switch kv.Kind() {
	case reflect.String:
		kv.SetString(k)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(k, 10, kv.Type().Bits())
		if err != nil {
			return err
		}
		kv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(k, 10, kv.Type().Bits())
		if err != nil {
			return err
		}
		kv.SetUint(n)
		return nil
	}
	return &json.UnsupportedTypeError{Type: kv.Type()}
}

// plain converts a tree node into the values pjson produces for an untyped
// target, with references resolved to shared maps.
func (d *graphDecoder) plain(node any) any {
	switch n := node.(type) {
	case map[string]any:
		if ref, ok := refOf(n); ok {
			target, found := d.ids[ref]
			if !found {
				return nil
			}
			return d.plain(target)
		}
		key := reflect.ValueOf(n).Pointer()
		if p, ok := d.plains[key]; ok {
			return p
		}
		if vals, ok := n["$values"].([]any); ok {
			arr := make([]any, len(vals))
			d.plains[key] = arr
			for i, v := range vals {
				arr[i] = d.plain(v)
			}
			return arr
		}
		id, hasID := n["$id"].(string)
		if hasID {
			// a map[string]any already built for this id by assignMap
			if existing, ok := d.built[builtKey{id, anyMapType}]; ok {
				p := existing.Interface()
				d.plains[key] = p
				return p
			}
		}
		out := make(map[string]any, len(n))
		d.plains[key] = out
		if hasID {
			d.built[builtKey{id, anyMapType}] = reflect.ValueOf(out)
		}
		for k, v := range n {
			if k == "$id" {
				continue
			}
			out[k] = d.plain(v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = d.plain(v)
		}
		return out
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	default:
		return n
	}
}
