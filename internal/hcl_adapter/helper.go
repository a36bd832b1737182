package hcl_adapter

import (
	"context"
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// evalContext is shared by every expression of a network file. It offers a
// few numeric helpers and constants useful when writing client arguments.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"pi": cty.NumberFloatVal(math.Pi),
			"e":  cty.NumberFloatVal(math.E),
		},
		Functions: map[string]function.Function{
			"abs":   stdlib.AbsoluteFunc,
			"ceil":  stdlib.CeilFunc,
			"floor": stdlib.FloorFunc,
			"max":   stdlib.MaxFunc,
			"min":   stdlib.MinFunc,
			"pow":   stdlib.PowFunc,
		},
	}
}

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder often populates optional fields with non-nil, zero-width
// expression objects, so a simple nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file, while a placeholder for an
	// omitted optional attribute has a zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// evalArguments turns an `arguments` block into an object value.
func evalArguments(block *ArgumentsBlock, evalCtx *hcl.EvalContext) (cty.Value, error) {
	if block == nil || block.Body == nil {
		return cty.NilVal, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid arguments block: %w", diags)
	}
	vals := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("argument '%s': %w", name, diags)
		}
		vals[name] = v
	}
	return cty.ObjectVal(vals), nil
}

// evalSeeds evaluates a `seed` attribute. A tuple or list provides several
// seed values; anything else is a single seed.
func evalSeeds(ctx context.Context, expr hcl.Expression, evalCtx *hcl.EvalContext) ([]cty.Value, error) {
	if !isExprDefined(ctx, expr, "seed") {
		return nil, nil
	}
	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid seed: %w", diags)
	}
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if ty.IsTupleType() || ty.IsListType() {
		if v.LengthInt() == 0 {
			return nil, nil
		}
		return v.AsValueSlice(), nil
	}
	return []cty.Value{v}, nil
}
