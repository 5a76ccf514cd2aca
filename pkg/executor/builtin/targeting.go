package builtin

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// targetingProgram wraps a compiled expr-lang boolean expression used by the
// ad/product recall targeting stub hook, grounded on the teacher's
// builtin/conditional.go use of expr.Compile/expr.Run.
type targetingProgram struct {
	program *vm.Program
}

func compileTargeting(source string) (*targetingProgram, error) {
	program, err := expr.Compile(source, expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &targetingProgram{program: program}, nil
}

func (t *targetingProgram) eval(env map[string]any) (bool, error) {
	out, err := expr.Run(t.program, env)
	if err != nil {
		return false, err
	}
	b, _ := out.(bool)
	return b, nil
}
