package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// State: inspectable snapshot of a machine
// ---------------------------------------------------------------------------

var stateEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	stateEncMode = em
}

// InstructionRecord is one instruction in a State listing.
type InstructionRecord struct {
	Op      string `cbor:"1,keyasint" json:"op"`
	Operand string `cbor:"2,keyasint,omitempty" json:"operand,omitempty"`
	Line    int    `cbor:"3,keyasint" json:"line"`
}

// State is a snapshot of a machine's run state. Values are recorded in
// display form, so a State describes a parked machine but cannot revive
// one.
type State struct {
	ID        uint64              `cbor:"1,keyasint" json:"id"`
	Chunk     string              `cbor:"2,keyasint" json:"chunk"`
	IP        int                 `cbor:"3,keyasint" json:"ip"`
	Stack     []string            `cbor:"4,keyasint,omitempty" json:"stack,omitempty"`
	Suspended bool                `cbor:"5,keyasint" json:"suspended"`
	Finished  bool                `cbor:"6,keyasint" json:"finished"`
	Awaiting  string              `cbor:"7,keyasint,omitempty" json:"awaiting,omitempty"`
	Line      int                 `cbor:"8,keyasint,omitempty" json:"line,omitempty"`
	Code      []InstructionRecord `cbor:"9,keyasint" json:"code"`
}

// State captures the machine's current run state.
func (m *Machine) State() *State {
	s := &State{
		ID:        m.id,
		Chunk:     m.prog.Chunk,
		IP:        m.ip,
		Suspended: m.suspended,
		Finished:  m.finished,
	}
	for _, v := range m.stack {
		s.Stack = append(s.Stack, Format(v))
	}
	if m.suspended {
		s.Awaiting = m.awaiting.Name
		s.Line = m.awaiting.Code.Line
	}
	s.Code = make([]InstructionRecord, len(m.prog.Code))
	for i, ins := range m.prog.Code {
		s.Code[i] = InstructionRecord{Op: ins.Op.String(), Operand: ins.Operand(), Line: ins.Code.Line}
	}
	return s
}

// MarshalState encodes s as canonical CBOR.
func MarshalState(s *State) ([]byte, error) {
	return stateEncMode.Marshal(s)
}

// UnmarshalState decodes a State from CBOR.
func UnmarshalState(data []byte) (*State, error) {
	var s State
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal state: %w", err)
	}
	return &s, nil
}
