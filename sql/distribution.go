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
	"fmt"
	"strings"
)

// DistributionKind enumerates how a node's output is partitioned across
// parallel shards.
type DistributionKind int

const (
	// AnyShard places no constraint on the partitioning.
	AnyShard DistributionKind = iota
	// Single means the whole output lives on one partition.
	Single
	// HashShard partitions by a consistent hash of the key columns.
	HashShard
	// Broadcast replicates the output to every partition.
	Broadcast
	// NoShuffle keeps the upstream layout, actor for actor.
	NoShuffle
)

// Distribution is the partitioning property of a node's output. Keys is only
// meaningful for HashShard and holds output column indices.
type Distribution struct {
	Kind DistributionKind
	Keys []int
}

// AnyDist is the unconstrained distribution requirement.
func AnyDist() Distribution { return Distribution{Kind: AnyShard} }

// SingleDist is the one-partition distribution.
func SingleDist() Distribution { return Distribution{Kind: Single} }

// HashDist partitions by the given output column indices.
func HashDist(keys ...int) Distribution {
	return Distribution{Kind: HashShard, Keys: keys}
}

// BroadcastDist replicates to all partitions.
func BroadcastDist() Distribution { return Distribution{Kind: Broadcast} }

// NoShuffleDist pipelines the upstream layout unchanged.
func NoShuffleDist() Distribution { return Distribution{Kind: NoShuffle} }

// Satisfies reports whether data distributed as d may be consumed by an
// operator requiring req without an exchange. A Single distribution
// trivially satisfies every partitioning requirement except Broadcast.
func (d Distribution) Satisfies(req Distribution) bool {
	switch req.Kind {
	case AnyShard:
		return true
	case Single:
		return d.Kind == Single
	case Broadcast:
		return d.Kind == Broadcast
	case HashShard:
		if d.Kind == Single {
			return true
		}
		if d.Kind != HashShard || len(d.Keys) != len(req.Keys) {
			return false
		}
		for i, k := range d.Keys {
			if k != req.Keys[i] {
				return false
			}
		}
		return true
	case NoShuffle:
		return false
	}
	return false
}

// MapKeys returns a copy of the distribution with its key indices rewritten
// through m. If any key is dropped by m the distribution degrades to
// AnyShard, because the partitioning is no longer expressible downstream.
func (d Distribution) MapKeys(m func(int) (int, bool)) Distribution {
	if d.Kind != HashShard {
		return d
	}
	keys := make([]int, 0, len(d.Keys))
	for _, k := range d.Keys {
		nk, ok := m(k)
		if !ok {
			return AnyDist()
		}
		keys = append(keys, nk)
	}
	return HashDist(keys...)
}

func (d Distribution) String() string {
	switch d.Kind {
	case AnyShard:
		return "AnyShard"
	case Single:
		return "Single"
	case Broadcast:
		return "Broadcast"
	case NoShuffle:
		return "NoShuffle"
	case HashShard:
		keys := make([]string, len(d.Keys))
		for i, k := range d.Keys {
			keys[i] = fmt.Sprint(k)
		}
		return fmt.Sprintf("HashShard(%s)", strings.Join(keys, ", "))
	}
	return "Unknown"
}
