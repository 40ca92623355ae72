package lua

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts values between Go and Lua.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value. Integral numbers become
// int64, sequence tables []any and other tables map[string]any. Functions
// and cycles become nil.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n := sequenceLen(t); n > 0 {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = b.toGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'f', -1, 64)
		default:
			key = k.String()
		}
		m[key] = b.toGo(v, visited)
	})
	return m
}

// sequenceLen returns n if the table's keys are exactly 1..n, else 0.
func sequenceLen(t *lua.LTable) int {
	count, maxN := 0, 0
	sequence := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 {
			sequence = false
			return
		}
		maxN = max(maxN, int(kn))
	})
	if !sequence || count != maxN {
		return 0
	}
	return maxN
}

// ToLuaValue converts a Go value to a Lua value. Structs become tables keyed
// by their json tag or field name.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []any:
		t := b.L.CreateTable(len(val), 0)
		for i, e := range val {
			t.RawSetInt(i+1, b.ToLuaValue(e))
		}
		return t
	case map[string]any:
		t := b.L.CreateTable(0, len(val))
		for k, e := range val {
			t.RawSetString(k, b.ToLuaValue(e))
		}
		return t
	default:
		return b.reflectToLua(reflect.ValueOf(v))
	}
}

func (b *Bridge) reflectToLua(rv reflect.Value) lua.LValue {
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return b.reflectToLua(rv.Elem())
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Slice, reflect.Array:
		t := b.L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.reflectToLua(rv.Index(i)))
		}
		return t
	case reflect.Map:
		t := b.L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(b.reflectToLua(iter.Key()), b.reflectToLua(iter.Value()))
		}
		return t
	case reflect.Struct:
		t := b.L.NewTable()
		for name, field := range structFields(rv) {
			t.RawSetString(name, b.reflectToLua(field))
		}
		return t
	default:
		ud := b.L.NewUserData()
		if rv.CanInterface() {
			ud.Value = rv.Interface()
		}
		return ud
	}
}

// structFields yields the exported fields of a struct value under their Lua
// key: the json tag name if present, else the Go field name.
func structFields(rv reflect.Value) func(yield func(string, reflect.Value) bool) {
	return func(yield func(string, reflect.Value) bool) {
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
				continue
			} else if tag != "" {
				name = tag
			}
			if !yield(name, rv.Field(i)) {
				return
			}
		}
	}
}

// ApplyTable writes the scalar fields present in t back into the struct
// pointed to by dst. Nested structs and pointer fields are left alone.
func (b *Bridge) ApplyTable(t *lua.LTable, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("apply table: want pointer to struct, got %T", dst)
	}

	for name, field := range structFields(rv.Elem()) {
		lv := t.RawGetString(name)
		if lv == lua.LNil || !field.CanSet() {
			continue
		}
		if err := setScalar(field, lv); err != nil {
			return fmt.Errorf("apply table: field %q: %w", name, err)
		}
	}
	return nil
}

func setScalar(field reflect.Value, lv lua.LValue) error {
	switch field.Kind() {
	case reflect.Bool:
		field.SetBool(lua.LVAsBool(lv))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("want number, got %s", lv.Type())
		}
		field.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := lv.(lua.LNumber)
		if !ok || n < 0 {
			return fmt.Errorf("want non-negative number, got %s", lv.String())
		}
		field.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("want number, got %s", lv.Type())
		}
		field.SetFloat(float64(n))
	case reflect.String:
		s, ok := lv.(lua.LString)
		if !ok {
			return fmt.Errorf("want string, got %s", lv.Type())
		}
		field.SetString(string(s))
	}
	return nil
}

// WrapGoFunc exposes a Go function taking and returning plain Go values.
// A returned error is raised as a Lua error.
func (b *Bridge) WrapGoFunc(fn func(args []any) (any, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]any, n)
		for i := 1; i <= n; i++ {
			args[i-1] = b.ToGoValue(L.Get(i))
		}

		result, err := fn(args)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		if result == nil {
			return 0
		}
		L.Push(b.ToLuaValue(result))
		return 1
	}
}
