package compiler

// ---------------------------------------------------------------------------
// Codegen: Compile AST to a flat instruction sequence
// ---------------------------------------------------------------------------

// Compiler lowers an AST subtree into a Program in one linear pass.
type Compiler struct {
	code    []Instruction
	argMode bool // compiling a call argument: refs become vivifiable
}

// Compile compiles node into a program for chunk. Statement values are
// only reported when node is a CompoundExpression; a bare expression
// leaves its value on the stack.
func Compile(node Node, chunk string) (*Program, error) {
	c := &Compiler{}
	if err := Accept(node, c); err != nil {
		return nil, err
	}
	return &Program{Chunk: chunk, Code: c.code}, nil
}

// Program compiles n on first use and returns the same program after
// that, so a body run many times is compiled once.
func (n *CompoundExpression) Program() (*Program, error) {
	if n.compiled != nil {
		return n.compiled, nil
	}
	prog, err := Compile(n, n.Code.Chunk)
	if err != nil {
		return nil, err
	}
	n.compiled = prog
	return prog, nil
}

// Check parses source and compiles every block in it, including hanging
// call bodies, without running anything. It returns the first error.
func Check(source, chunk string) error {
	ce, err := Parse(source, chunk)
	if err != nil {
		return err
	}
	return checkBlock(ce)
}

func checkBlock(ce *CompoundExpression) error {
	if _, err := ce.Program(); err != nil {
		return err
	}
	for _, stmt := range ce.Statements {
		if hc, ok := stmt.(*HangingCall); ok {
			if err := checkBlock(hc.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Compiler) emit(ins Instruction) {
	c.code = append(c.code, ins)
}

func (c *Compiler) VisitLiteral(n *Literal) error {
	c.emit(Instruction{Op: OpPush, Value: n.Value, Code: n.Code})
	return nil
}

func (c *Compiler) VisitBareWord(n *BareWord) error {
	return &CompileError{Code: n.Code, Msg: "bare word " + n.Word + " outside a call"}
}

func (c *Compiler) VisitRef(n *Ref) error {
	op := OpGet
	if c.argMode {
		op = OpGetVivifiable
	}
	c.emit(Instruction{Op: op, Name: n.Name, Code: n.Code})
	return nil
}

func (c *Compiler) VisitUnaryMinus(n *UnaryMinus) error {
	c.emit(Instruction{Op: OpPush, Value: float64(0), Code: n.Code})
	if err := c.plain(n.Operand); err != nil {
		return err
	}
	c.emit(Instruction{Op: OpSub, Code: n.Code})
	return nil
}

func (c *Compiler) VisitBinOp(n *BinOpNode) error {
	if err := c.plain(n.Left); err != nil {
		return err
	}
	for _, step := range n.Ops {
		if err := c.plain(step.Right); err != nil {
			return err
		}
		op, ok := binOpOpcodes[step.Op]
		if !ok {
			return &CompileError{Code: n.Code, Msg: "unknown operator " + step.Op.String()}
		}
		c.emit(Instruction{Op: op, Code: n.Code})
	}
	return nil
}

func (c *Compiler) VisitCompound(n *CompoundExpression) error {
	for _, stmt := range n.Statements {
		if err := c.plain(stmt); err != nil {
			return err
		}
		c.emit(Instruction{Op: OpExpress, Code: stmt.Loc()})
	}
	return nil
}

func (c *Compiler) VisitFuncArg(n *FuncArg) error {
	saved := c.argMode
	c.argMode = true
	err := Accept(n.Expr, c)
	c.argMode = saved
	return err
}

func (c *Compiler) VisitFuncCall(n *FuncCall) error {
	if err := c.args(n.Args); err != nil {
		return err
	}
	c.emit(Instruction{Op: OpCallFunc, Name: n.Name, Arity: len(n.Args), Code: n.Code})
	return nil
}

func (c *Compiler) VisitHangingCall(n *HangingCall) error {
	if n.Body == nil {
		return &MissingBodyError{Code: n.Code, Name: n.Name}
	}
	if err := c.args(n.Args); err != nil {
		return err
	}
	c.emit(Instruction{Op: OpCallHanging, Name: n.Name, Arity: len(n.Args), Body: n.Body, Code: n.Code})
	return nil
}

func (c *Compiler) args(args []*FuncArg) error {
	for _, arg := range args {
		if err := c.VisitFuncArg(arg); err != nil {
			return err
		}
	}
	return nil
}

// plain compiles n outside argument position. Nested calls inside an
// argument reset the mode, so only a direct $ref argument is vivifiable.
func (c *Compiler) plain(n Node) error {
	saved := c.argMode
	c.argMode = false
	err := Accept(n, c)
	c.argMode = saved
	return err
}
