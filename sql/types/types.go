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

// Package types defines the data types understood by the planner and the
// implicit widening between them.
package types

import (
	"github.com/rivuletdata/rivulet/sql"
)

type typeID int

const (
	booleanID typeID = iota
	int16ID
	int32ID
	int64ID
	decimalID
	float32ID
	float64ID
	varcharID
	dateID
	timestampID
	intervalID
)

type baseType struct {
	id      typeID
	name    string
	numeric bool
}

func (t baseType) String() string { return t.name }
func (t baseType) Numeric() bool  { return t.numeric }

func (t baseType) Equals(other sql.Type) bool {
	o, ok := other.(baseType)
	return ok && o.id == t.id
}

var (
	Boolean   sql.Type = baseType{booleanID, "Boolean", false}
	Int16     sql.Type = baseType{int16ID, "Int16", true}
	Int32     sql.Type = baseType{int32ID, "Int32", true}
	Int64     sql.Type = baseType{int64ID, "Int64", true}
	Decimal   sql.Type = baseType{decimalID, "Decimal", true}
	Float32   sql.Type = baseType{float32ID, "Float32", true}
	Float64   sql.Type = baseType{float64ID, "Float64", true}
	Varchar   sql.Type = baseType{varcharID, "Varchar", false}
	Date      sql.Type = baseType{dateID, "Date", false}
	Timestamp sql.Type = baseType{timestampID, "Timestamp", false}
	Interval  sql.Type = baseType{intervalID, "Interval", false}
)

// All lists every type, in wire-tag order. The order is load-bearing for
// serialization and must not change.
var All = []sql.Type{
	Boolean, Int16, Int32, Int64, Decimal, Float32, Float64,
	Varchar, Date, Timestamp, Interval,
}

// TagOf returns the stable wire tag of a type.
func TagOf(t sql.Type) int {
	for i, c := range All {
		if c.Equals(t) {
			return i
		}
	}
	return -1
}

// FromName resolves a type by its display name.
func FromName(name string) (sql.Type, bool) {
	for _, t := range All {
		if t.String() == name {
			return t, true
		}
	}
	return nil, false
}

// integer widening lattice: Int16 < Int32 < Int64 < Decimal
var intRank = map[typeID]int{
	int16ID:   0,
	int32ID:   1,
	int64ID:   2,
	decimalID: 3,
}

// float widening lattice: Float32 < Float64
var floatRank = map[typeID]int{
	float32ID: 0,
	float64ID: 1,
}

// CanImplicitCast reports whether a value of from may be silently widened
// to to. Implicit casts follow Int16 < Int32 < Int64 < Decimal and
// Float32 < Float64; integers also widen into floats.
func CanImplicitCast(from, to sql.Type) bool {
	f, okF := from.(baseType)
	t, okT := to.(baseType)
	if !okF || !okT {
		return false
	}
	if f.id == t.id {
		return true
	}
	if fi, ok := intRank[f.id]; ok {
		if ti, ok := intRank[t.id]; ok {
			return fi <= ti
		}
		if _, ok := floatRank[t.id]; ok {
			return true
		}
		return false
	}
	if ff, ok := floatRank[f.id]; ok {
		if tf, ok := floatRank[t.id]; ok {
			return ff <= tf
		}
		return false
	}
	return false
}

// Promote returns the least common type both operands implicitly cast to.
func Promote(a, b sql.Type) (sql.Type, bool) {
	if a.Equals(b) {
		return a, true
	}
	if CanImplicitCast(a, b) {
		return b, true
	}
	if CanImplicitCast(b, a) {
		return a, true
	}
	return nil, false
}
