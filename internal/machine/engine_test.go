package machine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTape(t *testing.T, s string) Tape {
	t.Helper()
	tape, err := ParseTape(s)
	require.NoError(t, err)
	return tape
}

func collect(t *testing.T, e *Engine) ([]Configuration, error) {
	t.Helper()
	var out []Configuration
	for c, err := range e.Run() {
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

func TestNew_InvalidTape(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "0", Blank, Halt)})

	_, err := New(nil, tbl)
	require.Error(t, err)
	assert.True(t, IsInvalidTape(err))

	_, err = New(Tape{}, tbl)
	assert.True(t, IsInvalidTape(err))
}

func TestNew_StartPositionOutOfRange(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "0", Blank, Halt)})

	_, err := New(mustTape(t, "00"), tbl, WithStartPosition(2))
	assert.True(t, IsTapeOverrun(err))

	_, err = New(mustTape(t, "00"), tbl, WithStartPosition(-1))
	assert.True(t, IsTapeOverrun(err))
}

func TestRun_HaltRuleStillApplies(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "1", Mark, Halt)})
	e, err := New(mustTape(t, "0"), tbl)
	require.NoError(t, err)

	configs, err := collect(t, e)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, Configuration{Step: 0, State: "0", Head: 0, Tape: Tape{Blank}}, configs[0])
	assert.Equal(t, Configuration{Step: 1, State: "1", Head: 0, Tape: Tape{Mark}}, configs[1])
	assert.True(t, e.Halted())
	assert.Equal(t, 1, e.Steps())

	_, err = e.Step()
	assert.ErrorIs(t, err, ErrHalted)
}

func TestRun_WalksRightThenHalts(t *testing.T) {
	tbl := MustTable("t", []Entry{
		entry("0", Mark, "0", Blank, Right),
		entry("0", Blank, "done", Blank, Halt),
	})
	e, err := New(mustTape(t, "1110"), tbl)
	require.NoError(t, err)

	final, err := e.RunToHalt()
	require.NoError(t, err)
	assert.Equal(t, 4, final.Step)
	assert.Equal(t, 3, final.Head)
	assert.Equal(t, State("done"), final.State)
	assert.Equal(t, "0000", final.Tape.String())
	assert.Equal(t, Blank, final.Symbol())
}

func TestStep_MissingTransition(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "0", Blank, Right)})
	e, err := New(mustTape(t, "01"), tbl)
	require.NoError(t, err)

	configs, err := collect(t, e)
	require.Error(t, err)
	assert.True(t, IsMissingTransition(err))
	require.Len(t, configs, 2)

	var me *MachineError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, State("0"), me.State)
	assert.Equal(t, Mark, me.Symbol)
	assert.Equal(t, 1, me.Head)
	assert.Equal(t, 1, me.Step)

	// Configuration at failure is still inspectable and unchanged.
	assert.Equal(t, 1, e.Head())
	assert.Equal(t, "01", e.Tape().String())
	assert.False(t, e.Halted())
	assert.Equal(t, err, e.Err())

	// The engine stays failed.
	_, again := e.Step()
	assert.Equal(t, err, again)
}

func TestStep_TapeOverrunRight(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "0", Mark, Right)})
	e, err := New(mustTape(t, "00"), tbl)
	require.NoError(t, err)

	c, err := e.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Head)

	c, err = e.Step()
	require.Error(t, err)
	assert.True(t, IsTapeOverrun(err))
	// The failing rule's write was not applied.
	assert.Equal(t, "10", c.Tape.String())
	assert.Equal(t, 1, c.Head)
	assert.Equal(t, 1, e.Steps())
}

func TestStep_TapeOverrunLeft(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "1", Mark, Left)})
	e, err := New(mustTape(t, "0"), tbl)
	require.NoError(t, err)

	configs, err := collect(t, e)
	assert.True(t, IsTapeOverrun(err))
	require.Len(t, configs, 1)
	assert.Equal(t, "0", e.Tape().String())
	assert.Equal(t, State("0"), e.State())
	assert.Equal(t, 0, e.Steps())
}

func TestRun_HeadNeverLeavesTape(t *testing.T) {
	tbl := MustTable("bounce", []Entry{
		entry("0", Blank, "1", Mark, Right),
		entry("1", Blank, "0", Mark, Left),
		entry("0", Mark, "1", Blank, Right),
		entry("1", Mark, "0", Blank, Left),
	})
	e, err := New(mustTape(t, "00"), tbl, WithMaxSteps(50))
	require.NoError(t, err)

	for c, err := range e.Run() {
		assert.GreaterOrEqual(t, c.Head, 0)
		assert.Less(t, c.Head, 2)
		if err != nil {
			assert.True(t, IsStepLimit(err))
		}
	}
	assert.Equal(t, 50, e.Steps())
}

func TestRun_EarlyTermination(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "0", Mark, Right)})
	e, err := New(mustTape(t, "00000"), tbl)
	require.NoError(t, err)

	n := 0
	for range e.Run() {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 2, e.Steps())
	assert.Equal(t, "11000", e.Tape().String())
	assert.Equal(t, 2, e.Head())
	assert.NoError(t, e.Err())
}

func TestRun_NotRestartable(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "0", Blank, Halt)})
	e, err := New(mustTape(t, "0"), tbl)
	require.NoError(t, err)

	_, err = collect(t, e)
	require.NoError(t, err)

	_, err = collect(t, e)
	assert.True(t, errors.Is(err, ErrRunStarted))
}

func TestEngine_DoesNotAliasCallerTape(t *testing.T) {
	tbl := MustTable("t", []Entry{entry("0", Blank, "0", Mark, Halt)})
	input := mustTape(t, "0")

	e1, err := New(input, tbl)
	require.NoError(t, err)
	e2, err := New(input, tbl)
	require.NoError(t, err)

	c, err := e1.RunToHalt()
	require.NoError(t, err)
	c.Tape[0] = Blank

	assert.Equal(t, "0", input.String(), "caller tape untouched")
	assert.Equal(t, "1", e1.Tape().String(), "snapshot edits do not reach engine")
	assert.Equal(t, "0", e2.Tape().String(), "engines do not share tape")
}

func TestEngine_StartOptions(t *testing.T) {
	tbl := MustTable("t", []Entry{
		entry("a", Blank, "b", Mark, Halt),
	}, WithStart("a"))

	e, err := New(mustTape(t, "000"), tbl, WithStartPosition(2))
	require.NoError(t, err)
	assert.Equal(t, State("a"), e.State())

	final, err := e.RunToHalt()
	require.NoError(t, err)
	assert.Equal(t, "001", final.Tape.String())

	e, err = New(mustTape(t, "0"), tbl, WithStartState("z"))
	require.NoError(t, err)
	_, err = e.RunToHalt()
	assert.True(t, IsMissingTransition(err))
}

func TestMachineError_Message(t *testing.T) {
	err := &MachineError{Code: ErrCodeTapeOverrun, Message: "move would leave the tape", State: "3", Symbol: Mark, Head: 6, Step: 9}
	assert.Equal(t, "TAPE_OVERRUN: move would leave the tape (state=3, symbol=1, head=6, step=9)", err.Error())

	dup := newDuplicateRuleError(Key{State: "2", Symbol: Blank})
	assert.Equal(t, "DUPLICATE_RULE: duplicate rule for (state 2, symbol 0)", dup.Error())
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
