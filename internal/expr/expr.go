// Package expr provides the backend-neutral expression language.
//
// Expressions built here are plain data: they describe a computation
// without knowing which backend will run it. A compliant namespace lowers
// them into its own expression type (see compliant.Lower).
package expr

import (
	"fmt"
	"strings"

	"github.com/paveg/polyframe/internal/dtypes"
)

// ExprType represents the type of expression
type ExprType int

const (
	ExprColumn ExprType = iota
	ExprAll
	ExprExclude
	ExprNth
	ExprLiteral
	ExprLen
	ExprBinary
	ExprUnary
	ExprFunction
	ExprAggregation
	ExprAlias
	ExprHorizontal
	ExprCase
	ExprCompiled
)

// Expr represents an expression that can be evaluated lazily
type Expr interface {
	Type() ExprType
	String() string
}

// BinaryOp represents binary operations
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binarySymbols = map[BinaryOp]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "&",
	OpOr:  "|",
}

// String returns the operator symbol
func (op BinaryOp) String() string {
	if s, ok := binarySymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(op))
}

var binaryNames = map[BinaryOp]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "truediv",
	OpEq:  "eq",
	OpNe:  "ne",
	OpLt:  "lt",
	OpLe:  "le",
	OpGt:  "gt",
	OpGe:  "ge",
	OpAnd: "and",
	OpOr:  "or",
}

// Name returns the function name recorded when the operator is applied
func (op BinaryOp) Name() string {
	if s, ok := binaryNames[op]; ok {
		return s
	}
	return "unknown"
}

// IsComparison reports whether the operator yields a boolean from two values
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsLogical reports whether the operator combines two booleans
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// UnaryOp represents unary operations
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// FunctionName names an element-wise function
type FunctionName string

const (
	FuncAbs      FunctionName = "abs"
	FuncIsNull   FunctionName = "is_null"
	FuncFillNull FunctionName = "fill_null"
)

// AggregationType represents a reduction to one value per group
type AggregationType int

const (
	AggSum AggregationType = iota
	AggMean
	AggMin
	AggMax
	AggCount
)

// String returns the function name of the aggregation
func (a AggregationType) String() string {
	switch a {
	case AggSum:
		return "sum"
	case AggMean:
		return "mean"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggCount:
		return "count"
	default:
		return "unknown"
	}
}

// HorizontalKind selects a row-wise reducer
type HorizontalKind int

const (
	HorizontalAll HorizontalKind = iota
	HorizontalAny
	HorizontalSum
	HorizontalMean
	HorizontalMin
	HorizontalMax
	HorizontalCoalesce
	HorizontalConcatStr
)

// String returns the function name of the reducer
func (k HorizontalKind) String() string {
	switch k {
	case HorizontalAll:
		return "all_horizontal"
	case HorizontalAny:
		return "any_horizontal"
	case HorizontalSum:
		return "sum_horizontal"
	case HorizontalMean:
		return "mean_horizontal"
	case HorizontalMin:
		return "min_horizontal"
	case HorizontalMax:
		return "max_horizontal"
	case HorizontalCoalesce:
		return "coalesce"
	case HorizontalConcatStr:
		return "concat_str"
	default:
		return "unknown"
	}
}

// ops supplies the fluent operators shared by every node.
// Each constructor points self at the node it is embedded in.
type ops struct {
	self Expr
}

func (o ops) Add(other any) *BinaryExpr { return newBinary(o.self, OpAdd, other) }
func (o ops) Sub(other any) *BinaryExpr { return newBinary(o.self, OpSub, other) }
func (o ops) Mul(other any) *BinaryExpr { return newBinary(o.self, OpMul, other) }
func (o ops) Div(other any) *BinaryExpr { return newBinary(o.self, OpDiv, other) }
func (o ops) Eq(other any) *BinaryExpr { return newBinary(o.self, OpEq, other) }
func (o ops) Ne(other any) *BinaryExpr { return newBinary(o.self, OpNe, other) }
func (o ops) Lt(other any) *BinaryExpr { return newBinary(o.self, OpLt, other) }
func (o ops) Le(other any) *BinaryExpr { return newBinary(o.self, OpLe, other) }
func (o ops) Gt(other any) *BinaryExpr { return newBinary(o.self, OpGt, other) }
func (o ops) Ge(other any) *BinaryExpr { return newBinary(o.self, OpGe, other) }
func (o ops) And(other any) *BinaryExpr { return newBinary(o.self, OpAnd, other) }
func (o ops) Or(other any) *BinaryExpr { return newBinary(o.self, OpOr, other) }

func (o ops) Neg() *UnaryExpr { return newUnary(UnaryNeg, o.self) }
func (o ops) Not() *UnaryExpr { return newUnary(UnaryNot, o.self) }

func (o ops) Abs() *FunctionExpr { return newFunction(FuncAbs, o.self, nil) }
func (o ops) IsNull() *FunctionExpr { return newFunction(FuncIsNull, o.self, nil) }

// FillNull replaces nulls with value, which may itself be an expression
func (o ops) FillNull(value any) *FunctionExpr {
	return newFunction(FuncFillNull, o.self, []any{value})
}

func (o ops) Sum() *AggregationExpr { return newAggregation(o.self, AggSum) }
func (o ops) Mean() *AggregationExpr { return newAggregation(o.self, AggMean) }
func (o ops) Min() *AggregationExpr { return newAggregation(o.self, AggMin) }
func (o ops) Max() *AggregationExpr { return newAggregation(o.self, AggMax) }
func (o ops) Count() *AggregationExpr { return newAggregation(o.self, AggCount) }

// Alias renames the single output of the expression
func (o ops) Alias(name string) *AliasExpr {
	a := &AliasExpr{input: o.self, name: name}
	a.ops = ops{a}
	return a
}

// ColumnExpr references columns by name
type ColumnExpr struct {
	ops
	names []string
}

func (c *ColumnExpr) Type() ExprType { return ExprColumn }

func (c *ColumnExpr) String() string {
	return fmt.Sprintf("col(%s)", strings.Join(c.names, ", "))
}

func (c *ColumnExpr) Names() []string { return c.names }

// AllExpr references every column of the frame
type AllExpr struct {
	ops
}

func (a *AllExpr) Type() ExprType { return ExprAll }
func (a *AllExpr) String() string { return "all()" }

// ExcludeExpr references every column except the named ones
type ExcludeExpr struct {
	ops
	names []string
}

func (e *ExcludeExpr) Type() ExprType { return ExprExclude }

func (e *ExcludeExpr) String() string {
	return fmt.Sprintf("exclude(%s)", strings.Join(e.names, ", "))
}

func (e *ExcludeExpr) Names() []string { return e.names }

// NthExpr references columns by position
type NthExpr struct {
	ops
	indices []int
}

func (n *NthExpr) Type() ExprType { return ExprNth }

func (n *NthExpr) String() string {
	return fmt.Sprintf("nth(%s)", strings.Trim(fmt.Sprint(n.indices), "[]"))
}

func (n *NthExpr) Indices() []int { return n.indices }

// LiteralExpr represents a literal value
type LiteralExpr struct {
	ops
	value any
	dtype dtypes.DType
}

func (l *LiteralExpr) Type() ExprType { return ExprLiteral }

func (l *LiteralExpr) String() string {
	if s, ok := l.value.(string); ok {
		return fmt.Sprintf("lit(%q)", s)
	}
	return fmt.Sprintf("lit(%v)", l.value)
}

func (l *LiteralExpr) Value() any { return l.value }

// DType returns the requested type, Unknown when it should be inferred
func (l *LiteralExpr) DType() dtypes.DType { return l.dtype }

// LenExpr counts the rows of the frame
type LenExpr struct {
	ops
}

func (l *LenExpr) Type() ExprType { return ExprLen }
func (l *LenExpr) String() string { return "len()" }

// BinaryExpr represents a binary operation.
// The right operand is either an Expr or a literal value.
type BinaryExpr struct {
	ops
	left  Expr
	op    BinaryOp
	right any
}

func (b *BinaryExpr) Type() ExprType { return ExprBinary }

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.left.String(), b.op, operandString(b.right))
}

func (b *BinaryExpr) Left() Expr { return b.left }
func (b *BinaryExpr) Op() BinaryOp { return b.op }
func (b *BinaryExpr) Right() any { return b.right }

// UnaryExpr represents a unary operation
type UnaryExpr struct {
	ops
	op      UnaryOp
	operand Expr
}

func (u *UnaryExpr) Type() ExprType { return ExprUnary }

func (u *UnaryExpr) String() string {
	if u.op == UnaryNot {
		return fmt.Sprintf("~%s", u.operand)
	}
	return fmt.Sprintf("-%s", u.operand)
}

func (u *UnaryExpr) Op() UnaryOp { return u.op }
func (u *UnaryExpr) Operand() Expr { return u.operand }

// FunctionExpr represents an element-wise function call
type FunctionExpr struct {
	ops
	name  FunctionName
	input Expr
	args  []any
}

func (f *FunctionExpr) Type() ExprType { return ExprFunction }

func (f *FunctionExpr) String() string {
	parts := make([]string, len(f.args))
	for i, a := range f.args {
		parts[i] = operandString(a)
	}
	return fmt.Sprintf("%s.%s(%s)", f.input, f.name, strings.Join(parts, ", "))
}

func (f *FunctionExpr) Name() FunctionName { return f.name }
func (f *FunctionExpr) Input() Expr { return f.input }
func (f *FunctionExpr) Args() []any { return f.args }

// AggregationExpr represents an aggregation
type AggregationExpr struct {
	ops
	input Expr
	agg   AggregationType
}

func (a *AggregationExpr) Type() ExprType { return ExprAggregation }

func (a *AggregationExpr) String() string {
	return fmt.Sprintf("%s.%s()", a.input, a.agg)
}

func (a *AggregationExpr) Input() Expr { return a.input }
func (a *AggregationExpr) AggType() AggregationType { return a.agg }

// AliasExpr renames the output of its input
type AliasExpr struct {
	ops
	input Expr
	name  string
}

func (a *AliasExpr) Type() ExprType { return ExprAlias }

func (a *AliasExpr) String() string {
	return fmt.Sprintf("%s.alias(%q)", a.input, a.name)
}

func (a *AliasExpr) Input() Expr { return a.input }
func (a *AliasExpr) Name() string { return a.name }

// HorizontalExpr combines its inputs row by row.
// Inputs are expressions or strings naming columns.
type HorizontalExpr struct {
	ops
	kind        HorizontalKind
	inputs      []any
	ignoreNulls bool
	separator   string
}

func (h *HorizontalExpr) Type() ExprType { return ExprHorizontal }

func (h *HorizontalExpr) String() string {
	parts := make([]string, len(h.inputs))
	for i, in := range h.inputs {
		parts[i] = operandString(in)
	}
	return fmt.Sprintf("%s(%s)", h.kind, strings.Join(parts, ", "))
}

func (h *HorizontalExpr) Kind() HorizontalKind { return h.kind }
func (h *HorizontalExpr) Inputs() []any { return h.inputs }
func (h *HorizontalExpr) IgnoreNulls() bool { return h.ignoreNulls }
func (h *HorizontalExpr) Separator() string { return h.separator }

// CaseWhen is one branch of a conditional chain
type CaseWhen struct {
	Condition any
	Value     any
}

// CaseExpr represents when(...).then(...)[.when(...).then(...)][.otherwise(...)]
type CaseExpr struct {
	ops
	whens        []CaseWhen
	otherwise    any
	hasOtherwise bool
}

func (c *CaseExpr) Type() ExprType { return ExprCase }

func (c *CaseExpr) String() string {
	var sb strings.Builder
	for i, w := range c.whens {
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(fmt.Sprintf("when(%s).then(%s)", operandString(w.Condition), operandString(w.Value)))
	}
	if c.hasOtherwise {
		sb.WriteString(fmt.Sprintf(".otherwise(%s)", operandString(c.otherwise)))
	}
	return sb.String()
}

func (c *CaseExpr) Whens() []CaseWhen { return c.whens }

// Otherwise returns the fallback value and whether one was given
func (c *CaseExpr) Otherwise() (any, bool) { return c.otherwise, c.hasOtherwise }

// When adds another branch to the chain
func (c *CaseExpr) When(condition any) *PendingCase {
	return &PendingCase{prior: c.whens, condition: condition}
}

// Else sets the fallback value of the chain
func (c *CaseExpr) Else(value any) *CaseExpr {
	out := &CaseExpr{whens: c.whens, otherwise: value, hasOtherwise: true}
	out.ops = ops{out}
	return out
}

// PendingCase is a condition waiting for its then value
type PendingCase struct {
	prior     []CaseWhen
	condition any
}

// Then completes the branch
func (p *PendingCase) Then(value any) *CaseExpr {
	whens := make([]CaseWhen, len(p.prior), len(p.prior)+1)
	copy(whens, p.prior)
	whens = append(whens, CaseWhen{Condition: p.condition, Value: value})
	c := &CaseExpr{whens: whens}
	c.ops = ops{c}
	return c
}

// CompiledExpr wraps a value already built by a backend namespace.
// Lowering checks that it belongs to the target namespace.
type CompiledExpr struct {
	ops
	value any
}

func (c *CompiledExpr) Type() ExprType { return ExprCompiled }

func (c *CompiledExpr) String() string { return fmt.Sprintf("compiled(%v)", c.value) }

func (c *CompiledExpr) Value() any { return c.value }

func operandString(v any) string {
	switch x := v.(type) {
	case Expr:
		return x.String()
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func newBinary(left Expr, op BinaryOp, right any) *BinaryExpr {
	b := &BinaryExpr{left: left, op: op, right: right}
	b.ops = ops{b}
	return b
}

func newUnary(op UnaryOp, operand Expr) *UnaryExpr {
	u := &UnaryExpr{op: op, operand: operand}
	u.ops = ops{u}
	return u
}

func newFunction(name FunctionName, input Expr, args []any) *FunctionExpr {
	f := &FunctionExpr{name: name, input: input, args: args}
	f.ops = ops{f}
	return f
}

func newAggregation(input Expr, agg AggregationType) *AggregationExpr {
	a := &AggregationExpr{input: input, agg: agg}
	a.ops = ops{a}
	return a
}

func newHorizontal(kind HorizontalKind, inputs []any, ignoreNulls bool, separator string) *HorizontalExpr {
	h := &HorizontalExpr{kind: kind, inputs: inputs, ignoreNulls: ignoreNulls, separator: separator}
	h.ops = ops{h}
	return h
}

// Constructor functions

// Col creates a column expression
func Col(names ...string) *ColumnExpr {
	c := &ColumnExpr{names: names}
	c.ops = ops{c}
	return c
}

// All selects every column
func All() *AllExpr {
	a := &AllExpr{}
	a.ops = ops{a}
	return a
}

// Exclude selects every column except names
func Exclude(names ...string) *ExcludeExpr {
	e := &ExcludeExpr{names: names}
	e.ops = ops{e}
	return e
}

// Nth selects columns by position; negative indices count from the end
func Nth(indices ...int) *NthExpr {
	n := &NthExpr{indices: indices}
	n.ops = ops{n}
	return n
}

// Lit creates a literal expression with an inferred type
func Lit(value any) *LiteralExpr {
	return LitAs(value, dtypes.Unknown)
}

// LitAs creates a literal expression with an explicit type
func LitAs(value any, dtype dtypes.DType) *LiteralExpr {
	l := &LiteralExpr{value: value, dtype: dtype}
	l.ops = ops{l}
	return l
}

// Len counts rows
func Len() *LenExpr {
	l := &LenExpr{}
	l.ops = ops{l}
	return l
}

// Compiled wraps a backend expression so it can travel through the language
func Compiled(value any) *CompiledExpr {
	c := &CompiledExpr{value: value}
	c.ops = ops{c}
	return c
}

// Sum creates a sum aggregation
func Sum(input Expr) *AggregationExpr { return newAggregation(input, AggSum) }

// Mean creates a mean aggregation
func Mean(input Expr) *AggregationExpr { return newAggregation(input, AggMean) }

// Min creates a min aggregation
func Min(input Expr) *AggregationExpr { return newAggregation(input, AggMin) }

// Max creates a max aggregation
func Max(input Expr) *AggregationExpr { return newAggregation(input, AggMax) }

// Count creates a count aggregation
func Count(input Expr) *AggregationExpr { return newAggregation(input, AggCount) }

// AllHorizontal is true where every input is true
func AllHorizontal(ignoreNulls bool, inputs ...any) *HorizontalExpr {
	return newHorizontal(HorizontalAll, inputs, ignoreNulls, "")
}

// AnyHorizontal is true where some input is true
func AnyHorizontal(ignoreNulls bool, inputs ...any) *HorizontalExpr {
	return newHorizontal(HorizontalAny, inputs, ignoreNulls, "")
}

// SumHorizontal adds the inputs row by row; nulls count as zero
func SumHorizontal(inputs ...any) *HorizontalExpr {
	return newHorizontal(HorizontalSum, inputs, true, "")
}

// MeanHorizontal averages the non-null inputs row by row
func MeanHorizontal(inputs ...any) *HorizontalExpr {
	return newHorizontal(HorizontalMean, inputs, true, "")
}

// MinHorizontal takes the smallest non-null input row by row
func MinHorizontal(inputs ...any) *HorizontalExpr {
	return newHorizontal(HorizontalMin, inputs, true, "")
}

// MaxHorizontal takes the largest non-null input row by row
func MaxHorizontal(inputs ...any) *HorizontalExpr {
	return newHorizontal(HorizontalMax, inputs, true, "")
}

// Coalesce takes the first non-null input row by row
func Coalesce(inputs ...any) *HorizontalExpr {
	return newHorizontal(HorizontalCoalesce, inputs, true, "")
}

// ConcatStr joins the inputs as strings row by row
func ConcatStr(separator string, ignoreNulls bool, inputs ...any) *HorizontalExpr {
	return newHorizontal(HorizontalConcatStr, inputs, ignoreNulls, separator)
}

// When starts a conditional chain
func When(condition any) *PendingCase {
	return &PendingCase{condition: condition}
}
