// Copyright 2021 Rivulet Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expression

import (
	"fmt"
	"strings"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/types"
)

// FuncKind enumerates the scalar functions and operators understood by the
// planner.
type FuncKind int

const (
	Add FuncKind = iota
	Subtract
	Multiply
	Divide
	Modulus
	Neg
	Equal
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	And
	Or
	Not
	IsNull
	IsNotNull
	Upper
	Lower
	Length
	Substr
	Replace
	Concat
)

var funcNames = map[FuncKind]string{
	Add:                "+",
	Subtract:           "-",
	Multiply:           "*",
	Divide:             "/",
	Modulus:            "%",
	Neg:                "neg",
	Equal:              "=",
	NotEqual:           "<>",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	And:                "and",
	Or:                 "or",
	Not:                "not",
	IsNull:             "is_null",
	IsNotNull:          "is_not_null",
	Upper:              "upper",
	Lower:              "lower",
	Length:             "length",
	Substr:             "substr",
	Replace:            "replace",
	Concat:             "concat",
}

// Name returns the display name of the function kind.
func (k FuncKind) Name() string { return funcNames[k] }

// Infix reports whether the kind prints in infix position.
func (k FuncKind) Infix() bool {
	switch k {
	case Add, Subtract, Multiply, Divide, Modulus, Equal, NotEqual,
		LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual, And, Or:
		return true
	}
	return false
}

// scalarFuncsByName resolves the named scalar functions users may call.
// Operators are produced by the binder directly and are not in this table.
var scalarFuncsByName = map[string]FuncKind{
	"upper":   Upper,
	"lower":   Lower,
	"length":  Length,
	"substr":  Substr,
	"replace": Replace,
	"concat":  Concat,
}

// ScalarFuncByName resolves a function name to its kind.
func ScalarFuncByName(name string) (FuncKind, bool) {
	k, ok := scalarFuncsByName[strings.ToLower(name)]
	return k, ok
}

type signature struct {
	args []sql.Type
	ret  sql.Type
}

var numericTypes = []sql.Type{
	types.Int16, types.Int32, types.Int64,
	types.Decimal, types.Float32, types.Float64,
}

var comparableTypes = append(append([]sql.Type{}, numericTypes...),
	types.Boolean, types.Varchar, types.Date, types.Timestamp)

// signatures is the registry resolved against by the builder. Order within
// a kind matters: the first matching signature after implicit widening
// wins, so narrower signatures come first.
var signatures = map[FuncKind][]signature{}

func addSig(kind FuncKind, ret sql.Type, args ...sql.Type) {
	signatures[kind] = append(signatures[kind], signature{args: args, ret: ret})
}

func init() {
	for _, k := range []FuncKind{Add, Subtract, Multiply, Divide, Modulus} {
		for _, t := range numericTypes {
			addSig(k, t, t, t)
		}
	}
	// date arithmetic: DATE + INTERVAL -> TIMESTAMP
	addSig(Add, types.Timestamp, types.Date, types.Interval)
	addSig(Add, types.Timestamp, types.Interval, types.Date)
	addSig(Add, types.Timestamp, types.Timestamp, types.Interval)
	addSig(Subtract, types.Timestamp, types.Timestamp, types.Interval)

	for _, t := range numericTypes {
		addSig(Neg, t, t)
	}

	for _, k := range []FuncKind{Equal, NotEqual, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual} {
		for _, t := range comparableTypes {
			addSig(k, types.Boolean, t, t)
		}
	}

	addSig(And, types.Boolean, types.Boolean, types.Boolean)
	addSig(Or, types.Boolean, types.Boolean, types.Boolean)
	addSig(Not, types.Boolean, types.Boolean)

	addSig(Upper, types.Varchar, types.Varchar)
	addSig(Lower, types.Varchar, types.Varchar)
	addSig(Length, types.Int32, types.Varchar)
	addSig(Substr, types.Varchar, types.Varchar, types.Int32, types.Int32)
	addSig(Replace, types.Varchar, types.Varchar, types.Varchar, types.Varchar)
	addSig(Concat, types.Varchar, types.Varchar, types.Varchar)
}

// FunctionCall is a resolved scalar function application. Its arguments
// already carry any casts required to match the chosen signature.
type FunctionCall struct {
	kind     FuncKind
	args     []sql.Expression
	ret      sql.Type
	nullable bool
}

// NewFunctionCall resolves kind against the signature registry, widening
// arguments where the lattice allows. It fails with ErrNoFunctionSignature
// when no signature matches.
func NewFunctionCall(kind FuncKind, args ...sql.Expression) (sql.Expression, error) {
	switch kind {
	case IsNull, IsNotNull:
		if len(args) != 1 {
			return nil, sql.ErrNoFunctionSignature.New(kind.Name(), argTypeList(args))
		}
		return &FunctionCall{kind: kind, args: args, ret: types.Boolean}, nil
	}

	sig, ok := resolveSignature(kind, args)
	if !ok {
		return nil, sql.ErrNoFunctionSignature.New(kind.Name(), argTypeList(args))
	}

	cast := make([]sql.Expression, len(args))
	nullable := false
	for i, a := range args {
		cast[i] = EnsureType(a, sig.args[i])
		nullable = nullable || a.Nullable()
	}
	return &FunctionCall{kind: kind, args: cast, ret: sig.ret, nullable: nullable}, nil
}

func resolveSignature(kind FuncKind, args []sql.Expression) (signature, bool) {
	candidates := signatures[kind]
	// exact match first
	for _, sig := range candidates {
		if len(sig.args) != len(args) {
			continue
		}
		exact := true
		for i, a := range args {
			if !a.Type().Equals(sig.args[i]) {
				exact = false
				break
			}
		}
		if exact {
			return sig, true
		}
	}
	// then the first signature every argument widens into
	for _, sig := range candidates {
		if len(sig.args) != len(args) {
			continue
		}
		matches := true
		for i, a := range args {
			if !types.CanImplicitCast(a.Type(), sig.args[i]) {
				matches = false
				break
			}
		}
		if matches {
			return sig, true
		}
	}
	return signature{}, false
}

func argTypeList(args []sql.Expression) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Type().String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Kind returns the function kind.
func (f *FunctionCall) Kind() FuncKind { return f.kind }

// Args returns the resolved arguments.
func (f *FunctionCall) Args() []sql.Expression { return f.args }

func (f *FunctionCall) Type() sql.Type { return f.ret }

func (f *FunctionCall) Nullable() bool { return f.nullable }

func (f *FunctionCall) Children() []sql.Expression { return f.args }

func (f *FunctionCall) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != len(f.args) {
		return nil, sql.ErrInvalidChildrenNumber.New(f, len(children), len(f.args))
	}
	nf := *f
	nf.args = children
	return &nf, nil
}

func (f *FunctionCall) String() string {
	if f.kind.Infix() && len(f.args) == 2 {
		return fmt.Sprintf("(%s %s %s)", f.args[0], f.kind.Name(), f.args[1])
	}
	parts := make([]string, len(f.args))
	for i, a := range f.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.kind.Name(), strings.Join(parts, ", "))
}
