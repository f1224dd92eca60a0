// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package script

import (
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"axonflow/workflowengine/value"
)

func valueToLua(L *lua.LState, v value.Value) lua.LValue {
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(t)
	case float64:
		return lua.LNumber(t)
	case int:
		return lua.LNumber(t)
	case string:
		return lua.LString(t)
	case []value.Value:
		tbl := L.NewTable()
		for i, e := range t {
			tbl.RawSetInt(i+1, valueToLua(L, e))
		}
		return tbl
	case map[string]value.Value:
		tbl := L.NewTable()
		for k, e := range t {
			tbl.RawSetString(k, valueToLua(L, e))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func luaToValue(lv lua.LValue) value.Value {
	if lv == lua.LNil || lv == nil {
		return nil
	}
	switch t := lv.(type) {
	case lua.LBool:
		return bool(t)
	case lua.LNumber:
		return float64(t)
	case lua.LString:
		return string(t)
	case *lua.LTable:
		return luaTableToValue(t)
	default:
		return nil
	}
}

// luaTableToValue converts a table to a []value.Value when it looks like a
// contiguous 1-based array (no non-integer keys beyond the array part),
// otherwise to a map[string]value.Value.
func luaTableToValue(t *lua.LTable) value.Value {
	n := t.Len()
	if n > 0 {
		extraKeys := false
		t.ForEach(func(k, _ lua.LValue) {
			if num, ok := k.(lua.LNumber); !ok || int(num) < 1 || int(num) > n {
				extraKeys = true
			}
		})
		if !extraKeys {
			arr := make([]value.Value, n)
			for i := 1; i <= n; i++ {
				arr[i-1] = luaToValue(t.RawGetInt(i))
			}
			return arr
		}
	}
	m := map[string]value.Value{}
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = luaToValue(v)
	})
	return m
}

// frozenValueToLua converts v into a read-only Lua value: every nested
// table is the classic proxy-table idiom (an empty table whose __index
// points at the real data and whose __newindex always errors), so a write
// at any depth raises rather than silently mutating the real scope,
// regardless of whether the target key already exists (plain __newindex on
// the real table would only fire for absent keys).
func frozenValueToLua(L *lua.LState, v value.Value) lua.LValue {
	switch t := v.(type) {
	case []value.Value:
		raw := L.NewTable()
		for i, e := range t {
			raw.RawSetInt(i+1, frozenValueToLua(L, e))
		}
		return readOnlyProxy(L, raw)
	case map[string]value.Value:
		raw := L.NewTable()
		for k, e := range t {
			raw.RawSetString(k, frozenValueToLua(L, e))
		}
		return readOnlyProxy(L, raw)
	default:
		return valueToLua(L, t)
	}
}

func readOnlyProxy(L *lua.LState, raw *lua.LTable) lua.LValue {
	proxy := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", raw)
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("variables is read-only")
		return 0
	}))
	mt.RawSetString("__len", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(raw.Len()))
		return 1
	}))
	mt.RawSetString("__metatable", lua.LFalse)
	L.SetMetatable(proxy, mt)
	return proxy
}

func registerJSON(L *lua.LState) {
	tbl := L.NewTable()
	tbl.RawSetString("encode", L.NewFunction(func(L *lua.LState) int {
		v := luaToValue(L.CheckAny(1))
		s, err := value.ToJSON(v)
		if err != nil {
			L.RaiseError("json.encode: %v", err)
			return 0
		}
		L.Push(lua.LString(s))
		return 1
	}))
	tbl.RawSetString("decode", L.NewFunction(func(L *lua.LState) int {
		s := L.CheckString(1)
		v, err := value.FromJSON(s)
		if err != nil {
			L.RaiseError("json.decode: %v", err)
			return 0
		}
		L.Push(valueToLua(L, v))
		return 1
	}))
	L.SetGlobal("json", tbl)
}

var dateTokenRepl = strings.NewReplacer(
	"YYYY", "2006",
	"MM", "01",
	"DD", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
)

func registerDate(L *lua.LState) {
	tbl := L.NewTable()
	tbl.RawSetString("now", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(NowFunc()))
		return 1
	}))
	tbl.RawSetString("format", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckNumber(1)
		layout := L.CheckString(2)
		t := time.UnixMilli(int64(ms)).UTC()
		L.Push(lua.LString(t.Format(dateTokenRepl.Replace(layout))))
		return 1
	}))
	tbl.RawSetString("add_days", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckNumber(1)
		n := L.CheckNumber(2)
		t := time.UnixMilli(int64(ms)).UTC().AddDate(0, 0, int(n))
		L.Push(lua.LNumber(t.UnixMilli()))
		return 1
	}))
	L.SetGlobal("date", tbl)
}
