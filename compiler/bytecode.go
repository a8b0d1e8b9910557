package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies an instruction. There are no jumps: loops and
// conditionals are calls into hanging-call bodies.
type Opcode byte

const (
	OpPush          Opcode = iota // push Value
	OpGet                         // push the value bound to Name
	OpGetVivifiable               // push a handle for Name (call-argument position)
	OpAdd                         // pop b, pop a, push a + b
	OpSub                         // pop b, pop a, push a - b
	OpMul                         // pop b, pop a, push a * b
	OpDiv                         // pop b, pop a, push a / b
	OpAnd                         // pop b, pop a, push a && b
	OpOr                          // pop b, pop a, push a || b
	OpNot                         // pop b, pop a, push a && !b
	OpCallFunc                    // pop Arity args, call Name
	OpCallHanging                 // pop Arity args, call Name with Body
	OpExpress                     // pop the statement value and report it
)

var opcodeNames = map[Opcode]string{
	OpPush:          "PUSH",
	OpGet:           "GET",
	OpGetVivifiable: "GET_VIVIFIABLE",
	OpAdd:           "ADD",
	OpSub:           "SUB",
	OpMul:           "MUL",
	OpDiv:           "DIV",
	OpAnd:           "AND",
	OpOr:            "OR",
	OpNot:           "NOT",
	OpCallFunc:      "CALL_FUNC",
	OpCallHanging:   "CALL_HANGING",
	OpExpress:       "EXPRESS",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}

var binOpOpcodes = map[BinOp]Opcode{
	BinAdd: OpAdd,
	BinSub: OpSub,
	BinMul: OpMul,
	BinDiv: OpDiv,
	BinAnd: OpAnd,
	BinOr:  OpOr,
	BinNot: OpNot,
}

// ---------------------------------------------------------------------------
// Instructions and programs
// ---------------------------------------------------------------------------

// Instruction is a single VM instruction. Only the fields its opcode
// uses are set.
type Instruction struct {
	Op    Opcode
	Value any                 // OpPush
	Name  string              // OpGet, OpGetVivifiable, calls (signature)
	Arity int                 // calls
	Body  *CompoundExpression // OpCallHanging, carried uncompiled
	Code  Code
}

// Operand renders the instruction's operand for listings.
func (ins Instruction) Operand() string {
	switch ins.Op {
	case OpPush:
		if s, ok := ins.Value.(string); ok {
			return strconv.Quote(s)
		}
		return fmt.Sprint(ins.Value)
	case OpGet, OpGetVivifiable:
		return "$" + ins.Name
	case OpCallFunc:
		return fmt.Sprintf("%q/%d", ins.Name, ins.Arity)
	case OpCallHanging:
		n := 0
		if ins.Body != nil {
			n = len(ins.Body.Statements)
		}
		return fmt.Sprintf("%q/%d body=%d stmts", ins.Name, ins.Arity, n)
	}
	return ""
}

func (ins Instruction) String() string {
	operand := ins.Operand()
	if operand == "" {
		return ins.Op.String()
	}
	return ins.Op.String() + " " + operand
}

// Program is a flat compiled instruction sequence.
type Program struct {
	Chunk string
	Code  []Instruction
}

// String disassembles the program, one instruction per line.
func (p *Program) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; %s (%d instructions)\n", p.Chunk, len(p.Code))
	for i, ins := range p.Code {
		fmt.Fprintf(&b, "%04d  L%-4d %s\n", i, ins.Code.Line, ins)
	}
	return b.String()
}

// Disassemble compiles ce and every hanging-call body below it and
// returns their listings, outermost first.
func Disassemble(ce *CompoundExpression) (string, error) {
	var b strings.Builder
	var walk func(ce *CompoundExpression) error
	walk = func(ce *CompoundExpression) error {
		prog, err := ce.Program()
		if err != nil {
			return err
		}
		b.WriteString(prog.String())
		for _, stmt := range ce.Statements {
			hc, ok := stmt.(*HangingCall)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\n; body of %s (line %d)\n", hc.Name, hc.Code.Line)
			if err := walk(hc.Body); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(ce); err != nil {
		return "", err
	}
	return b.String(), nil
}
