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

package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const expectedTree = `Project(a, b)
 ├─ HashJoin
 │   ├─ TableA
 │   └─ TableB
 └─ HashJoin
     ├─ TableC
     └─ TableD
`

func TestTreePrinter(t *testing.T) {
	p := NewTreePrinter()
	require.NoError(t, p.WriteNode("Project(%s, %s)", "a", "b"))

	p2 := NewTreePrinter()
	require.NoError(t, p2.WriteNode("HashJoin"))
	require.NoError(t, p2.WriteChildren(
		"TableA",
		"TableB",
	))

	p3 := NewTreePrinter()
	require.NoError(t, p3.WriteNode("HashJoin"))
	require.NoError(t, p3.WriteChildren(
		"TableC",
		"TableD",
	))

	require.NoError(t, p.WriteChildren(
		p2.String(),
		p3.String(),
	))

	require.Equal(t, expectedTree, p.String())
}

func TestTreePrinterErrors(t *testing.T) {
	require := require.New(t)

	p := NewTreePrinter()
	require.Error(p.WriteChildren("child before node"))
	require.NoError(p.WriteNode("node"))
	require.Error(p.WriteNode("node written twice"))
	require.NoError(p.WriteChildren("a"))
	require.Error(p.WriteChildren("children written twice"))
}
