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

// Id allocation seeds. Fixed so that identical inputs compile to identical
// outputs.
const (
	firstOperatorID = OperatorID(1)
	firstFragmentID = FragmentID(1)
	firstActorID    = ActorID(1)
)

// IDAllocator hands out operator, fragment, actor and scan ids for a single
// compilation. Counters are monotonic and seeded at fixed values.
type IDAllocator struct {
	nextOperator OperatorID
	nextFragment FragmentID
	nextActor    ActorID
	nextScan     int
}

// NewIDAllocator returns an allocator with all counters at their seeds.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{
		nextOperator: firstOperatorID,
		nextFragment: firstFragmentID,
		nextActor:    firstActorID,
	}
}

// NextOperatorID allocates an operator id.
func (a *IDAllocator) NextOperatorID() OperatorID {
	id := a.nextOperator
	a.nextOperator++
	return id
}

// NextFragmentID allocates a fragment id.
func (a *IDAllocator) NextFragmentID() FragmentID {
	id := a.nextFragment
	a.nextFragment++
	return id
}

// NextActorID allocates an actor id.
func (a *IDAllocator) NextActorID() ActorID {
	id := a.nextActor
	a.nextActor++
	return id
}

// NextScanOrdinal allocates the per-query ordinal used to name synthesized
// row id columns (_row_id#0, _row_id#1, ...).
func (a *IDAllocator) NextScanOrdinal() int {
	ord := a.nextScan
	a.nextScan++
	return ord
}
