package grader

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// Expression is a compiled arithmetic formula over named variables.
type Expression struct {
	src           string
	program       *vm.Program
	idents        []string
	caseSensitive bool
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var functions = map[string]func(float64) float64{
	"sin":    math.Sin,
	"cos":    math.Cos,
	"tan":    math.Tan,
	"sec":    func(x float64) float64 { return 1 / math.Cos(x) },
	"csc":    func(x float64) float64 { return 1 / math.Sin(x) },
	"cot":    func(x float64) float64 { return 1 / math.Tan(x) },
	"asin":   math.Asin,
	"arcsin": math.Asin,
	"acos":   math.Acos,
	"arccos": math.Acos,
	"atan":   math.Atan,
	"arctan": math.Atan,
	"sinh":   math.Sinh,
	"cosh":   math.Cosh,
	"tanh":   math.Tanh,
	"sqrt":   math.Sqrt,
	"exp":    math.Exp,
	"ln":     math.Log,
	"log":    math.Log,
	"log10":  math.Log10,
	"log2":   math.Log2,
	"abs":    math.Abs,
}

// compileOptions replaces expr's builtins with the math functions above.
var compileOptions = func() []expr.Option {
	opts := []expr.Option{expr.DisableAllBuiltins()}
	for name, fn := range functions {
		opts = append(opts, expr.Function(name, mathFunc(name, fn)))
	}
	return opts
}()

func mathFunc(name string, fn func(float64) float64) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s takes one argument, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		v := fn(x)
		if math.IsNaN(v) {
			return nil, fmt.Errorf("math domain error: %s(%g)", name, x)
		}
		return v, nil
	}
}

// Parse compiles a formula. Supported syntax: numbers (with optional
// exponent), identifiers, + - * / ^ ** with the usual precedence, unary
// sign, parentheses and single-argument calls of the math functions.
// When caseSensitive is false identifiers are folded to lower case.
func Parse(src string, caseSensitive bool) (*Expression, error) {
	code := src
	if !caseSensitive {
		code = strings.ToLower(code)
	}
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("empty formula")
	}

	tree, err := parser.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	seen := map[string]bool{}
	var idents []string
	if err := arithmetic(tree.Node, func(name string) {
		if !seen[name] {
			seen[name] = true
			idents = append(idents, name)
		}
	}); err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}

	program, err := expr.Compile(code, compileOptions...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Expression{src: src, program: program, idents: idents, caseSensitive: caseSensitive}, nil
}

// arithmetic rejects everything in the expr language beyond plain
// arithmetic and reports each variable name to ident.
func arithmetic(n ast.Node, ident func(string)) error {
	switch n := n.(type) {
	case *ast.IntegerNode, *ast.FloatNode:
		return nil
	case *ast.IdentifierNode:
		ident(n.Value)
		return nil
	case *ast.UnaryNode:
		if n.Operator != "-" && n.Operator != "+" {
			return fmt.Errorf("unsupported operator %q", n.Operator)
		}
		return arithmetic(n.Node, ident)
	case *ast.BinaryNode:
		switch n.Operator {
		case "+", "-", "*", "/", "^", "**":
		default:
			return fmt.Errorf("unsupported operator %q", n.Operator)
		}
		if err := arithmetic(n.Left, ident); err != nil {
			return err
		}
		return arithmetic(n.Right, ident)
	case *ast.CallNode:
		callee, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return errors.New("unsupported call")
		}
		return call(callee.Value, n.Arguments, ident)
	case *ast.BuiltinNode:
		return call(n.Name, n.Arguments, ident)
	}
	return fmt.Errorf("unsupported syntax (%T)", n)
}

func call(name string, args []ast.Node, ident func(string)) error {
	if _, ok := functions[name]; !ok {
		return fmt.Errorf("unknown function %q", name)
	}
	if len(args) != 1 {
		return fmt.Errorf("%s takes one argument, got %d", name, len(args))
	}
	return arithmetic(args[0], ident)
}

// Eval evaluates the expression. Variables shadow the constants pi and e.
func (x *Expression) Eval(vars map[string]float64) (float64, error) {
	env := make(map[string]any, len(vars)+len(constants))
	for k, v := range constants {
		env[k] = v
	}
	for k, v := range vars {
		if !x.caseSensitive {
			k = strings.ToLower(k)
		}
		env[k] = v
	}
	for _, name := range x.idents {
		if _, ok := env[name]; !ok {
			return 0, fmt.Errorf("undefined variable %q", name)
		}
	}

	out, err := expr.Run(x.program, env)
	if err != nil {
		return 0, err
	}
	v, err := toFloat(out)
	if err != nil {
		return 0, err
	}
	switch {
	case math.IsNaN(v):
		return 0, errors.New("math domain error")
	case math.IsInf(v, 0):
		return 0, errors.New("division by zero or overflow")
	}
	return v, nil
}

func (x *Expression) String() string { return x.src }

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("not a number: %v", v)
}
