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

package wire

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/types"
)

// expression variant tags
const (
	exprInputRef uint8 = iota
	exprConstant
	exprFuncCall
	exprCast
	// exprSearch and exprSarg are reserved for range-predicate lowering;
	// no builder path produces them yet.
	exprSearch
	exprSarg
)

// ExprNode is the wire form of a scalar expression.
type ExprNode struct {
	Tag      uint8
	Type     uint8
	Index    uint32
	FuncKind uint8
	// Datum is the constant payload; nil encodes SQL NULL.
	Datum    []byte
	NotNull  bool
	Children []*ExprNode
}

// Field is the wire form of one schema column.
type Field struct {
	Name   string
	Type   uint8
	Hidden bool
}

// AggArg is one argument of an aggregate call: a column reference plus
// its type.
type AggArg struct {
	InputRef uint32
	Type     uint8
}

// AggCallNode is the wire form of an aggregate call.
type AggCallNode struct {
	Type       uint8
	Args       []AggArg
	ReturnType uint8
	Distinct   bool
}

func typeTag(t sql.Type) (uint8, error) {
	tag := types.TagOf(t)
	if tag < 0 {
		return 0, sql.ErrInternal.New("unknown type in serialization")
	}
	return uint8(tag), nil
}

func fieldsOf(s sql.Schema) ([]Field, error) {
	fields := make([]Field, len(s))
	for i, c := range s {
		tag, err := typeTag(c.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = Field{Name: c.Name, Type: tag, Hidden: c.Hidden}
	}
	return fields, nil
}

func exprNode(e sql.Expression) (*ExprNode, error) {
	tag, err := typeTag(e.Type())
	if err != nil {
		return nil, err
	}
	switch e := e.(type) {
	case *expression.InputRef:
		return &ExprNode{Tag: exprInputRef, Type: tag, Index: uint32(e.Index())}, nil
	case *expression.Constant:
		datum, notNull, err := encodeDatum(e.Value(), e.Type())
		if err != nil {
			return nil, err
		}
		return &ExprNode{Tag: exprConstant, Type: tag, Datum: datum, NotNull: notNull}, nil
	case *expression.Cast:
		child, err := exprNode(e.Child())
		if err != nil {
			return nil, err
		}
		return &ExprNode{Tag: exprCast, Type: tag, Children: []*ExprNode{child}}, nil
	case *expression.FunctionCall:
		children := make([]*ExprNode, len(e.Args()))
		for i, a := range e.Args() {
			if children[i], err = exprNode(a); err != nil {
				return nil, err
			}
		}
		return &ExprNode{Tag: exprFuncCall, Type: tag, FuncKind: uint8(e.Kind()), Children: children}, nil
	case *expression.Alias:
		return exprNode(e.Child())
	default:
		return nil, sql.ErrInternal.New("unexpected expression in serialization")
	}
}

func exprNodes(exprs []sql.Expression) ([]*ExprNode, error) {
	out := make([]*ExprNode, len(exprs))
	for i, e := range exprs {
		ne, err := exprNode(e)
		if err != nil {
			return nil, err
		}
		out[i] = ne
	}
	return out, nil
}

// aggCallNode encodes an aggregate call. Rewrites guarantee aggregate
// arguments are plain column references by serialization time.
func aggCallNode(e sql.Expression) (*AggCallNode, error) {
	call, ok := expression.Unalias(e).(*expression.AggCall)
	if !ok {
		return nil, sql.ErrInternal.New("non-aggregate expression in aggregate list")
	}
	ret, err := typeTag(call.Type())
	if err != nil {
		return nil, err
	}
	args := make([]AggArg, len(call.Args()))
	for i, a := range call.Args() {
		ref, ok := a.(*expression.InputRef)
		if !ok {
			return nil, sql.ErrInternal.New("aggregate argument is not a column reference")
		}
		tag, err := typeTag(ref.Type())
		if err != nil {
			return nil, err
		}
		args[i] = AggArg{InputRef: uint32(ref.Index()), Type: tag}
	}
	return &AggCallNode{
		Type:       uint8(call.Kind()),
		Args:       args,
		ReturnType: ret,
		Distinct:   call.Distinct(),
	}, nil
}

func aggCallNodes(exprs []sql.Expression) ([]*AggCallNode, error) {
	out := make([]*AggCallNode, len(exprs))
	for i, e := range exprs {
		nc, err := aggCallNode(e)
		if err != nil {
			return nil, err
		}
		out[i] = nc
	}
	return out, nil
}

// encodeDatum converts a constant to its canonical bytes: integers
// big-endian, floats as big-endian IEEE bits, strings UTF-8, decimals in
// their shortest string form, times as nanoseconds since the epoch.
func encodeDatum(v interface{}, t sql.Type) ([]byte, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	switch {
	case t.Equals(types.Boolean):
		if v.(bool) {
			return []byte{1}, true, nil
		}
		return []byte{0}, true, nil
	case t.Equals(types.Int16):
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v.(int16)))
		return b[:], true, nil
	case t.Equals(types.Int32):
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v.(int32)))
		return b[:], true, nil
	case t.Equals(types.Int64):
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.(int64)))
		return b[:], true, nil
	case t.Equals(types.Float32):
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(v.(float32)))
		return b[:], true, nil
	case t.Equals(types.Float64):
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.(float64)))
		return b[:], true, nil
	case t.Equals(types.Varchar):
		return []byte(v.(string)), true, nil
	case t.Equals(types.Decimal):
		return []byte(v.(decimal.Decimal).String()), true, nil
	case t.Equals(types.Date), t.Equals(types.Timestamp):
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.(time.Time).UnixNano()))
		return b[:], true, nil
	case t.Equals(types.Interval):
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.(time.Duration)))
		return b[:], true, nil
	}
	return nil, false, sql.ErrInternal.New("unknown constant type in serialization")
}

func (e *ExprNode) encode(w *writer) {
	w.u8(e.Tag)
	w.u8(e.Type)
	w.u32(e.Index)
	w.u8(e.FuncKind)
	w.boolean(e.NotNull)
	w.bytes(e.Datum)
	w.u32(uint32(len(e.Children)))
	for _, c := range e.Children {
		c.encode(w)
	}
}

func (f Field) encode(w *writer) {
	w.str(f.Name)
	w.u8(f.Type)
	w.boolean(f.Hidden)
}

func (a *AggCallNode) encode(w *writer) {
	w.u8(a.Type)
	w.u32(uint32(len(a.Args)))
	for _, arg := range a.Args {
		w.u32(arg.InputRef)
		w.u8(arg.Type)
	}
	w.u8(a.ReturnType)
	w.boolean(a.Distinct)
}
