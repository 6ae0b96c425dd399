package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unx2/internal/machine"
)

func compileCUE(t *testing.T, src, path string) (*machine.Table, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return CompileTable(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileTableBasic(t *testing.T) {
	tbl, err := compileCUE(t, `
		table: flip: {
			description: "Inverts one cell"
			rules: [
				{state: 0, read: 0, next: 1, write: 1, move: "R"},
				{state: 0, read: 1, next: 1, write: 0, move: "STOP"},
			]
		}
	`, "table.flip")
	require.NoError(t, err)

	assert.Equal(t, "flip", tbl.Name())
	assert.Equal(t, "Inverts one cell", tbl.Description())
	assert.Equal(t, machine.DefaultStartState, tbl.Start())
	assert.Equal(t, 2, tbl.Len())

	rule, err := tbl.Lookup("0", machine.Blank)
	require.NoError(t, err)
	assert.Equal(t, machine.Rule{Next: "1", Write: machine.Mark, Move: machine.Right}, rule)

	rule, err = tbl.Lookup("0", machine.Mark)
	require.NoError(t, err)
	assert.Equal(t, machine.Halt, rule.Move)
}

func TestCompileTableStringLabels(t *testing.T) {
	tbl, err := compileCUE(t, `
		table: "two-step": {
			start: "go"
			rules: [
				{state: "go", read: "0", next: "stop", write: "1", move: +1},
				{state: "stop", read: "0", next: "stop", write: "0", move: 0},
			]
		}
	`, `table."two-step"`)
	require.NoError(t, err)

	assert.Equal(t, "two-step", tbl.Name())
	assert.Equal(t, machine.State("go"), tbl.Start())
	assert.Equal(t, []machine.State{"go", "stop"}, tbl.States())

	rule, err := tbl.Lookup("stop", machine.Blank)
	require.NoError(t, err)
	assert.Equal(t, machine.Halt, rule.Move)
}

func TestCompileTableMissingRules(t *testing.T) {
	_, err := compileCUE(t, `table: empty: { description: "nothing" }`, "table.empty")
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "rules", compileErr.Field)
	assert.Contains(t, err.Error(), "rules are required")
}

func TestCompileTableEmptyRules(t *testing.T) {
	_, err := compileCUE(t, `table: empty: { rules: [] }`, "table.empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one rule is required")
}

func TestCompileTableMissingField(t *testing.T) {
	_, err := compileCUE(t, `
		table: bad: {
			rules: [{state: 0, read: 0, next: 1, write: 1}]
		}
	`, "table.bad")
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "rules.move", compileErr.Field)
	assert.True(t, compileErr.Pos.IsValid())
}

func TestCompileTableInvalidSymbol(t *testing.T) {
	_, err := compileCUE(t, `
		table: bad: {
			rules: [{state: 0, read: 2, next: 1, write: 1, move: "R"}]
		}
	`, "table.bad")
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "rules.read", compileErr.Field)
}

func TestCompileTableInvalidDirection(t *testing.T) {
	_, err := compileCUE(t, `
		table: bad: {
			rules: [{state: 0, read: 0, next: 1, write: 1, move: "UP"}]
		}
	`, "table.bad")
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "rules.move", compileErr.Field)
}

func TestCompileTableWrongType(t *testing.T) {
	_, err := compileCUE(t, `
		table: bad: {
			rules: [{state: true, read: 0, next: 1, write: 1, move: "R"}]
		}
	`, "table.bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected string or int")
}

func TestCompileTableDuplicateRule(t *testing.T) {
	_, err := compileCUE(t, `
		table: dup: {
			rules: [
				{state: 0, read: 1, next: 1, write: 0, move: "R"},
				{state: 0, read: 1, next: 2, write: 1, move: "L"},
			]
		}
	`, "table.dup")
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.True(t, compileErr.Pos.IsValid())
	assert.Equal(t, "test.cue", compileErr.Pos.Filename())
	assert.Contains(t, err.Error(), "duplicate rule for (state 0, symbol 1)")
	assert.True(t, machine.IsDuplicateRule(err))
}
