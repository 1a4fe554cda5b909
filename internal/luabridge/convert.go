package luabridge

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/relay/internal/event"
)

// toGoValue converts a Lua value into a JSON encodable Go value.
// Functions and userdata have no JSON form and become nil.
func toGoValue(lv lua.LValue) any {
	return toGoValueVisited(lv, make(map[*lua.LTable]bool))
}

func toGoValueVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
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
		return tableToGo(v, visited)
	default:
		return nil
	}
}

// tableToGo returns a slice for sequences starting at 1 and a map otherwise.
// The empty table becomes an empty map.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	isArray := true
	maxN, count := 0, 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				maxN = max(maxN, n)
				return
			}
		}
		isArray = false
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = toGoValueVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGoValueVisited(v, visited)
	})
	return m
}

// toLuaValue converts decoded JSON values into Lua values.
func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, toLuaValue(L, item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, toLuaValue(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// payloadToTable exposes a payload to Lua as a fresh table.
func payloadToTable(L *lua.LState, p *event.Payload) lua.LValue {
	if p == nil {
		return L.NewTable()
	}
	return toLuaValue(L, p.Value())
}

// metaToTable exposes delivery metadata to Lua.
func metaToTable(L *lua.LState, meta event.Meta) *lua.LTable {
	t := L.CreateTable(0, 5)
	t.RawSetString("id", lua.LString(meta.ID))
	t.RawSetString("name", lua.LString(meta.Name))
	t.RawSetString("cycle", lua.LNumber(meta.CycleID))
	t.RawSetString("sender", lua.LString(meta.Sender))
	t.RawSetString("initiator", lua.LString(meta.Initiator))
	return t
}

// repliesToTable converts gathered did replies into an array of
// {name=, sender=, event=} tables.
func repliesToTable(L *lua.LState, replies []event.Reply) *lua.LTable {
	t := L.CreateTable(len(replies), 0)
	for i, r := range replies {
		entry := L.CreateTable(0, 3)
		entry.RawSetString("name", lua.LString(r.Meta.Name))
		entry.RawSetString("sender", lua.LString(r.Meta.Sender))
		entry.RawSetString("event", payloadToTable(L, r.Event))
		t.RawSetInt(i+1, entry)
	}
	return t
}
