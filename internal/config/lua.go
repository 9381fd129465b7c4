package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/arnodel/golua/lib"
	rt "github.com/arnodel/golua/runtime"
	"gopkg.in/yaml.v3"
)

// Resource limits applied while a Lua configuration executes.
const (
	luaCPULimit    = 10_000_000
	luaMemoryLimit = 50 * 1024 * 1024
	// luaMaxDepth bounds table nesting when converting Lua values.
	luaMaxDepth = 16
)

// LuaConfigParser parses Lua configuration files. The script runs in a
// fresh global environment with a "bar" table; it fills bar.config with bar
// settings and bar.widgets with the list of widget tables.
type LuaConfigParser struct {
	runtime *rt.Runtime
	cleanup func()
	mu      sync.Mutex
}

// NewLuaConfigParser creates a new LuaConfigParser with a fresh Lua runtime.
func NewLuaConfigParser() (*LuaConfigParser, error) {
	return NewLuaConfigParserWithOutput(io.Discard)
}

// NewLuaConfigParserWithOutput creates a LuaConfigParser whose print output
// goes to stdout.
func NewLuaConfigParserWithOutput(stdout io.Writer) (*LuaConfigParser, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	runtime := rt.New(stdout)
	cleanup := lib.LoadAll(runtime)

	return &LuaConfigParser{
		runtime: runtime,
		cleanup: cleanup,
	}, nil
}

// Parse executes a Lua configuration and builds a Config from the bar
// table it leaves behind.
func (p *LuaConfigParser) Parse(content []byte) (*Config, error) {
	doc, err := p.parseDocument(content)
	if err != nil {
		return nil, err
	}
	doc.expandEnv()
	return doc.build()
}

func (p *LuaConfigParser) parseDocument(content []byte) (*document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runtime == nil {
		return nil, fmt.Errorf("lua parser is closed")
	}
	p.initBarGlobal()

	closure, err := p.runtime.CompileAndLoadLuaChunk(
		"config",
		content,
		rt.TableValue(p.runtime.GlobalEnv()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile Lua configuration: %w", err)
	}

	if err := p.execute(closure); err != nil {
		return nil, fmt.Errorf("failed to execute Lua configuration: %w", err)
	}

	return p.extractDocument()
}

// execute runs closure under the CPU and memory hard limits. golua panics
// when a hard limit is reached; the panic is returned as an error.
func (p *LuaConfigParser) execute(closure *rt.Closure) (err error) {
	ctx := rt.RuntimeContextDef{
		HardLimits: rt.RuntimeResources{
			Cpu:    luaCPULimit,
			Memory: luaMemoryLimit,
		},
	}
	p.runtime.PushContext(ctx)
	defer p.runtime.PopContext()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resource limit exceeded: %v", r)
		}
	}()

	_, err = rt.Call1(p.runtime.MainThread(), rt.FunctionValue(closure))
	return err
}

// initBarGlobal resets the bar global to empty config and widget tables.
func (p *LuaConfigParser) initBarGlobal() {
	barTable := rt.NewTable()
	barTable.Set(rt.StringValue("config"), rt.TableValue(rt.NewTable()))
	barTable.Set(rt.StringValue("widgets"), rt.TableValue(rt.NewTable()))
	p.runtime.GlobalEnv().Set(rt.StringValue("bar"), rt.TableValue(barTable))
}

// extractDocument converts bar.config and bar.widgets to plain Go values and
// decodes them through YAML, so both formats share field names and checks.
func (p *LuaConfigParser) extractDocument() (*document, error) {
	barVal := p.runtime.GlobalEnv().Get(rt.StringValue("bar"))
	barTable, ok := barVal.TryTable()
	if !ok {
		return nil, fmt.Errorf("bar is not a table")
	}

	raw := map[string]any{}
	if v := barTable.Get(rt.StringValue("config")); v != rt.NilValue {
		if _, ok := v.TryTable(); !ok {
			return nil, fmt.Errorf("bar.config is not a table")
		}
		conv, err := luaToGo(v, 0)
		if err != nil {
			return nil, fmt.Errorf("bar.config: %w", err)
		}
		if m, ok := conv.(map[string]any); ok {
			raw["bar"] = m
		}
	}
	if v := barTable.Get(rt.StringValue("widgets")); v != rt.NilValue {
		if _, ok := v.TryTable(); !ok {
			return nil, fmt.Errorf("bar.widgets is not a table")
		}
		conv, err := luaToGo(v, 0)
		if err != nil {
			return nil, fmt.Errorf("bar.widgets: %w", err)
		}
		switch w := conv.(type) {
		case []any:
			raw["widgets"] = w
		case map[string]any:
			if len(w) != 0 {
				return nil, fmt.Errorf("bar.widgets must be a list")
			}
		}
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode Lua configuration: %w", err)
	}
	return decodeDocument(bytes.NewReader(data))
}

// Close releases resources associated with the parser's Lua runtime.
func (p *LuaConfigParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cleanup != nil {
		p.cleanup()
		p.cleanup = nil
	}
	p.runtime = nil
	return nil
}

// luaToGo converts a Lua value to nil, bool, int64, float64, string,
// []any (for sequences) or map[string]any.
func luaToGo(v rt.Value, depth int) (any, error) {
	if v == rt.NilValue {
		return nil, nil
	}
	if b, ok := v.TryBool(); ok {
		return b, nil
	}
	if n, ok := v.TryInt(); ok {
		return n, nil
	}
	if f, ok := v.TryFloat(); ok {
		return f, nil
	}
	if s, ok := v.TryString(); ok {
		return s, nil
	}
	t, ok := v.TryTable()
	if !ok {
		return nil, fmt.Errorf("unsupported Lua value %s", v.TypeName())
	}
	if depth >= luaMaxDepth {
		return nil, fmt.Errorf("tables nested deeper than %d levels", luaMaxDepth)
	}
	return luaTableToGo(t, depth+1)
}

func luaTableToGo(t *rt.Table, depth int) (any, error) {
	var (
		seq    []any
		fields = map[string]any{}
		isSeq  = true
	)
	n := t.Len()
	for k, v, ok := t.Next(rt.NilValue); ok && k != rt.NilValue; k, v, ok = t.Next(k) {
		if i, ok := k.TryInt(); ok && i >= 1 && i <= n {
			continue
		}
		isSeq = false
		key, ok := k.TryString()
		if !ok {
			return nil, fmt.Errorf("unsupported table key %s", k.TypeName())
		}
		val, err := luaToGo(v, depth)
		if err != nil {
			return nil, err
		}
		fields[key] = val
	}
	if isSeq && n > 0 {
		seq = make([]any, 0, n)
		for i := int64(1); i <= n; i++ {
			val, err := luaToGo(t.Get(rt.IntValue(i)), depth)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil
	}
	if n > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("table mixes list items with keys %v", keys)
	}
	return fields, nil
}
