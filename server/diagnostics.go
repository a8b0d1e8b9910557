package server

import (
	"errors"

	"github.com/chazu/backtalker/compiler"
	"github.com/chazu/backtalker/vm"
)

// Diagnostic kinds.
const (
	KindParse       = "parse"
	KindMissingBody = "missing-body"
	KindCompile     = "compile"
	KindDefinition  = "definition"
	KindLookup      = "lookup"
	KindBinding     = "binding"
	KindRuntime     = "runtime"
	KindInternal    = "internal"
)

// diagnose classifies err and extracts its source line.
func diagnose(err error) *Diagnostic {
	d := &Diagnostic{Kind: KindInternal, Message: err.Error()}

	var (
		pe *compiler.ParseError
		mb *compiler.MissingBodyError
		ce *compiler.CompileError
		de *vm.DefinitionError
		le *vm.LookupError
		be *vm.BindingError
		re *vm.RuntimeError
	)
	switch {
	case errors.As(err, &pe):
		d.Kind, d.Line = KindParse, pe.Code.Line
	case errors.As(err, &mb):
		d.Kind, d.Line = KindMissingBody, mb.Code.Line
	case errors.As(err, &ce):
		d.Kind, d.Line = KindCompile, ce.Code.Line
	case errors.As(err, &de):
		d.Kind = KindDefinition
	case errors.As(err, &le):
		d.Kind, d.Line = KindLookup, le.Code.Line
	case errors.As(err, &be):
		d.Kind, d.Line = KindBinding, be.Code.Line
	case errors.As(err, &re):
		d.Kind, d.Line = KindRuntime, re.Code.Line
	}
	return d
}
