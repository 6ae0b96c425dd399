package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unx2/internal/machine"
)

func TestCompileYAMLBasic(t *testing.T) {
	tbl, err := CompileYAML("flip.yaml", []byte(`
name: flip
description: Inverts one cell
start: a
rules:
  - {state: a, read: 0, next: b, write: 1, move: R}
  - state: a
    read: "1"
    next: b
    write: "0"
    move: -1
`))
	require.NoError(t, err)

	assert.Equal(t, "flip", tbl.Name())
	assert.Equal(t, "Inverts one cell", tbl.Description())
	assert.Equal(t, machine.State("a"), tbl.Start())

	rule, err := tbl.Lookup("a", machine.Mark)
	require.NoError(t, err)
	assert.Equal(t, machine.Rule{Next: "b", Write: machine.Blank, Move: machine.Left}, rule)
}

func TestCompileYAMLUnknownField(t *testing.T) {
	_, err := CompileYAML("bad.yaml", []byte(`
name: bad
rules:
  - {state: 0, read: 0, next: 1, write: 1, move: R, colour: red}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestCompileYAMLUnknownTopLevelField(t *testing.T) {
	_, err := CompileYAML("bad.yaml", []byte(`
name: bad
alphabet: [0, 1]
rules:
  - {state: 0, read: 0, next: 1, write: 1, move: R}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alphabet")
}

func TestCompileYAMLMissingName(t *testing.T) {
	_, err := CompileYAML("bad.yaml", []byte(`
rules:
  - {state: 0, read: 0, next: 1, write: 1, move: R}
`))
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "name", compileErr.Field)
	assert.Equal(t, "bad.yaml:1: name: name is required", err.Error())
}

func TestCompileYAMLMissingRules(t *testing.T) {
	_, err := CompileYAML("bad.yaml", []byte("name: bad\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one rule is required")
}

func TestCompileYAMLInvalidMove(t *testing.T) {
	_, err := CompileYAML("bad.yaml", []byte(`name: bad
rules:
  - {state: 0, read: 0, next: 1, write: 1, move: R}
  - {state: 1, read: 0, next: 1, write: 1, move: UP}
`))
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "rules.move", compileErr.Field)
	assert.Equal(t, 4, compileErr.Line)
}

func TestCompileYAMLNonScalarLabel(t *testing.T) {
	_, err := CompileYAML("bad.yaml", []byte(`name: bad
rules:
  - {state: [0], read: 0, next: 1, write: 1, move: R}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a scalar value")
}

func TestCompileYAMLDuplicateRule(t *testing.T) {
	_, err := CompileYAML("dup.yaml", []byte(`name: dup
rules:
  - {state: 0, read: 1, next: 1, write: 0, move: R}
  - {state: 1, read: 0, next: 1, write: 0, move: R}
  - {state: 0, read: 1, next: 2, write: 1, move: L}
`))
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, 5, compileErr.Line)
	assert.Equal(t, "dup.yaml:5: rules: duplicate rule for (state 0, symbol 1)", err.Error())
	assert.True(t, machine.IsDuplicateRule(err))
}
