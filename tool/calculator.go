package tool

import (
	"context"
	"fmt"
	"math"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// calculatorTool evaluates arithmetic expressions inside a CEL environment
// that declares only an allow-list of math functions and constants. Any
// identifier outside the allow-list fails compilation, so there is no path
// to ambient symbols, builtins or code execution. All compile and eval
// failures are reported as text, never raised.
type calculatorTool struct {
	env *cel.Env
}

var _ Tool = (*calculatorTool)(nil)

func newCalculatorTool() *calculatorTool {
	env, err := cel.NewEnv(calculatorDeclarations()...)
	if err != nil {
		// Declarations are static; a failure here is a programming error.
		panic(fmt.Sprintf("calculator environment: %v", err))
	}
	return &calculatorTool{env: env}
}

// Name implements Tool.
func (c *calculatorTool) Name() string { return "calculator" }

// Description implements Tool.
func (c *calculatorTool) Description() string {
	return "Useful for performing mathematical calculations. Input should be a mathematical expression like '2 + 2' or 'sqrt(16.0)'."
}

// Call implements Tool.
func (c *calculatorTool) Call(_ context.Context, input string) (string, error) {
	ast, iss := c.env.Compile(input)
	if iss != nil && iss.Err() != nil {
		return fmt.Sprintf("Error calculating expression: %v", iss.Err()), nil
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return fmt.Sprintf("Error calculating expression: %v", err), nil
	}
	out, _, err := prg.Eval(cel.NoVars())
	if err != nil {
		return fmt.Sprintf("Error calculating expression: %v", err), nil
	}
	return fmt.Sprintf("Result: %v", out.Value()), nil
}

// calculatorDeclarations is the fixed allow-list: math functions, the
// aggregate helpers and the constants pi and e. Nothing else resolves.
func calculatorDeclarations() []cel.EnvOption {
	opts := []cel.EnvOption{
		cel.Constant("pi", cel.DoubleType, types.Double(math.Pi)),
		cel.Constant("e", cel.DoubleType, types.Double(math.E)),
		unaryMath("sqrt", math.Sqrt),
		unaryMath("sin", math.Sin),
		unaryMath("cos", math.Cos),
		unaryMath("tan", math.Tan),
		unaryMath("log", math.Log),
		unaryMath("log10", math.Log10),
		unaryMath("exp", math.Exp),
		unaryMath("floor", math.Floor),
		unaryMath("ceil", math.Ceil),
		binaryMath("pow", math.Pow),
		cel.Function("abs",
			cel.Overload("abs_int", []*cel.Type{cel.IntType}, cel.IntType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					i := v.Value().(int64)
					if i < 0 {
						i = -i
					}
					return types.Int(i)
				})),
			cel.Overload("abs_double", []*cel.Type{cel.DoubleType}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return types.Double(math.Abs(v.Value().(float64)))
				})),
		),
		cel.Function("round",
			cel.Overload("round_double", []*cel.Type{cel.DoubleType}, cel.IntType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return types.Int(int64(math.Round(v.Value().(float64))))
				})),
			cel.Overload("round_int", []*cel.Type{cel.IntType}, cel.IntType,
				cel.UnaryBinding(func(v ref.Val) ref.Val { return v })),
		),
		cel.Function("min",
			cel.Overload("min_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.IntType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					if a.Value().(int64) < b.Value().(int64) {
						return a
					}
					return b
				})),
			cel.Overload("min_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					return types.Double(math.Min(a.Value().(float64), b.Value().(float64)))
				})),
		),
		cel.Function("max",
			cel.Overload("max_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.IntType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					if a.Value().(int64) > b.Value().(int64) {
						return a
					}
					return b
				})),
			cel.Overload("max_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					return types.Double(math.Max(a.Value().(float64), b.Value().(float64)))
				})),
		),
		cel.Function("sum",
			cel.Overload("sum_list", []*cel.Type{cel.ListType(cel.DynType)}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					lister, ok := v.(traits.Lister)
					if !ok {
						return types.NewErr("sum expects a list")
					}
					var total float64
					for it := lister.Iterator(); it.HasNext() == types.True; {
						f, ok := toFloat(it.Next())
						if !ok {
							return types.NewErr("sum expects numeric elements")
						}
						total += f
					}
					return types.Double(total)
				})),
		),
	}
	return opts
}

// unaryMath declares fn for both int and double arguments, always returning
// a double.
func unaryMath(name string, fn func(float64) float64) cel.EnvOption {
	apply := func(v ref.Val) ref.Val {
		f, ok := toFloat(v)
		if !ok {
			return types.NewErr("%s expects a number", name)
		}
		return types.Double(fn(f))
	}
	return cel.Function(name,
		cel.Overload(name+"_double", []*cel.Type{cel.DoubleType}, cel.DoubleType, cel.UnaryBinding(apply)),
		cel.Overload(name+"_int", []*cel.Type{cel.IntType}, cel.DoubleType, cel.UnaryBinding(apply)),
	)
}

// binaryMath declares fn over int/double argument pairs, returning a double.
func binaryMath(name string, fn func(a, b float64) float64) cel.EnvOption {
	apply := func(a, b ref.Val) ref.Val {
		fa, okA := toFloat(a)
		fb, okB := toFloat(b)
		if !okA || !okB {
			return types.NewErr("%s expects numbers", name)
		}
		return types.Double(fn(fa, fb))
	}
	return cel.Function(name,
		cel.Overload(name+"_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType, cel.BinaryBinding(apply)),
		cel.Overload(name+"_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.DoubleType, cel.BinaryBinding(apply)),
		cel.Overload(name+"_int_double", []*cel.Type{cel.IntType, cel.DoubleType}, cel.DoubleType, cel.BinaryBinding(apply)),
		cel.Overload(name+"_double_int", []*cel.Type{cel.DoubleType, cel.IntType}, cel.DoubleType, cel.BinaryBinding(apply)),
	)
}

func toFloat(v ref.Val) (float64, bool) {
	switch x := v.Value().(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}
