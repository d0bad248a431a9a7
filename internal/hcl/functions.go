package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// maxRepeat bounds the list built by repeat.
const maxRepeat = 1 << 20

// repeatFunc returns a list holding value count times.
var repeatFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "value", Type: cty.DynamicPseudoType},
		{Name: "count", Type: cty.Number},
	},
	Type: func(args []cty.Value) (cty.Type, error) {
		return cty.List(args[0].Type()), nil
	},
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		var n int
		if err := gocty.FromCtyValue(args[1], &n); err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		if n < 0 || n > maxRepeat {
			return cty.NilVal, function.NewArgErrorf(1, "count must be between 0 and %d, got %d", maxRepeat, n)
		}
		if n == 0 {
			return cty.ListValEmpty(retType.ElementType()), nil
		}
		values := make([]cty.Value, n)
		for i := range values {
			values[i] = args[0]
		}
		return cty.ListVal(values), nil
	},
})

// evalContext is the context every dataset expression is evaluated in.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"abs":     stdlib.AbsoluteFunc,
			"ceil":    stdlib.CeilFunc,
			"concat":  stdlib.ConcatFunc,
			"flatten": stdlib.FlattenFunc,
			"floor":   stdlib.FloorFunc,
			"length":  stdlib.LengthFunc,
			"max":     stdlib.MaxFunc,
			"min":     stdlib.MinFunc,
			"range":   stdlib.RangeFunc,
			"repeat":  repeatFunc,
			"reverse": stdlib.ReverseListFunc,
		},
	}
}

// diagsError turns error diagnostics into an error prefixed with what.
func diagsError(what string, diags hcl.Diagnostics) error {
	if !diags.HasErrors() {
		return nil
	}
	return fmt.Errorf("%s: %w", what, diags)
}
