// Package luascript compiles procedural migrations written in Lua.
//
// A script defines global functions up(tx) and, optionally, down(tx). The
// chunk itself runs once at compile time with a global table named config.
// The tx argument exposes two methods:
//
//	tx:exec(sql, ...)  -- returns the number of affected rows
//	tx:query(sql, ...) -- returns an array of rows keyed by column name
//
// Every call returns only after the database has responded, so statements run
// strictly in the order the script issues them.
package luascript

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Shopify/go-lua"

	"github.com/root-talis/junban/migration"
	"github.com/root-talis/junban/script"
)

const txTypeName = "junban.tx"

type compiler struct {
	config map[string]string
}

// NewCompiler returns a compiler exposing config to scripts as the global
// config table.
func NewCompiler(config map[string]string) script.Compiler {
	return &compiler{config: config}
}

func (c *compiler) Compile(mig migration.Descriptor, src []byte) (*script.Program, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerTxType(state)
	c.registerConfig(state)

	if err := lua.LoadBuffer(state, string(src), mig.FileName, ""); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", mig.FileName, err)
	}

	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", mig.FileName, err)
	}

	prog := &script.Program{}
	if hasFunction(state, "up") {
		prog.Up = step(state, "up")
	}
	if hasFunction(state, "down") {
		prog.Down = step(state, "down")
	}

	return prog, nil
}

func (c *compiler) registerConfig(state *lua.State) {
	keys := make([]string, 0, len(c.config))
	for k := range c.config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	state.CreateTable(0, len(keys))
	for _, k := range keys {
		state.PushString(c.config[k])
		state.SetField(-2, k)
	}
	state.SetGlobal("config")
}

func hasFunction(state *lua.State, name string) bool {
	state.Global(name)
	defer state.Pop(1)
	return state.IsFunction(-1)
}

// step calls the global function name with a tx handle valid only for the
// duration of the call.
func step(state *lua.State, name string) migration.StepFunc {
	return func(ctx context.Context, tx migration.Tx) error {
		handle := &txHandle{ctx: ctx, tx: tx}
		defer handle.close()
		defer state.SetTop(0)

		state.Global(name)
		state.PushUserData(handle)
		lua.SetMetaTableNamed(state, txTypeName)

		if err := state.ProtectedCall(1, 0, 0); err != nil {
			if handle.raised(err) {
				return handle.err
			}
			return fmt.Errorf("%s failed: %w", name, err)
		}

		return nil
	}
}

// ---

type txHandle struct {
	ctx context.Context //nolint:containedctx
	tx  migration.Tx
	err error
}

func (h *txHandle) close() {
	h.tx = nil
}

// raised reports whether err is the database error of the last tx call,
// rather than one the script caught and replaced with its own.
func (h *txHandle) raised(err error) bool {
	return h.err != nil && strings.Contains(err.Error(), h.err.Error())
}

var txMethods = []lua.RegistryFunction{ //nolint:gochecknoglobals
	{Name: "exec", Function: txExec},
	{Name: "query", Function: txQuery},
}

func registerTxType(state *lua.State) {
	lua.NewMetaTable(state, txTypeName)
	state.NewTable()
	lua.SetFunctions(state, txMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func checkTx(state *lua.State) *txHandle {
	ud := lua.CheckUserData(state, 1, txTypeName)
	handle, ok := ud.(*txHandle)
	if !ok {
		lua.ArgumentError(state, 1, "tx expected")
	}
	if handle.tx == nil {
		lua.Errorf(state, "transaction is no longer usable")
	}
	return handle
}

func txExec(state *lua.State) int {
	handle := checkTx(state)
	query := lua.CheckString(state, 2)
	args := checkArgs(state, 3)

	affected, err := handle.tx.Exec(handle.ctx, query, args...)
	handle.err = nil
	if err != nil {
		handle.err = err
		lua.Errorf(state, "%s", err.Error())
	}

	state.PushInteger(int(affected))
	return 1
}

func txQuery(state *lua.State) int {
	handle := checkTx(state)
	query := lua.CheckString(state, 2)
	args := checkArgs(state, 3)

	rows, err := handle.tx.Query(handle.ctx, query, args...)
	handle.err = nil
	if err != nil {
		handle.err = err
		lua.Errorf(state, "%s", err.Error())
	}

	state.CreateTable(len(rows), 0)
	for i, row := range rows {
		state.CreateTable(0, len(row))
		for column, value := range row {
			pushValue(state, value)
			state.SetField(-2, column)
		}
		state.RawSetInt(-2, i+1)
	}
	return 1
}

func checkArgs(state *lua.State, from int) []any {
	args := make([]any, 0, state.Top())
	for i := from; i <= state.Top(); i++ {
		switch state.TypeOf(i) {
		case lua.TypeNil:
			args = append(args, nil)
		case lua.TypeBoolean:
			args = append(args, state.ToBoolean(i))
		case lua.TypeNumber:
			n, _ := state.ToNumber(i)
			if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
				args = append(args, int64(n))
			} else {
				args = append(args, n)
			}
		case lua.TypeString:
			s, _ := state.ToString(i)
			args = append(args, s)
		default:
			lua.ArgumentError(state, i, "unsupported statement argument")
		}
	}
	return args
}

func pushValue(state *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		state.PushNil()
	case bool:
		state.PushBoolean(v)
	case int64:
		state.PushInteger(int(v))
	case int:
		state.PushInteger(v)
	case float64:
		state.PushNumber(v)
	case string:
		state.PushString(v)
	case []byte:
		state.PushString(string(v))
	case time.Time:
		state.PushString(v.Format(time.RFC3339Nano))
	default:
		state.PushString(fmt.Sprint(v))
	}
}
