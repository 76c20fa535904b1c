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

package fragment

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"

	"github.com/rivuletdata/rivulet/sql"
)

// vnodeMapping assigns each virtual node to a downstream actor by
// rendezvous hashing: the actor with the highest murmur3 weight for the
// vnode wins. The table is a pure function of the actor list, so every
// sibling dispatcher into the same fragment shares it, and an actor
// joining or leaving moves only its own vnodes. The hash function is part
// of the plan contract and must never change for deployed graphs.
func vnodeMapping(actors []sql.ActorID, vnodes int) []sql.ActorID {
	mapping := make([]sql.ActorID, vnodes)
	var key [8]byte
	for v := 0; v < vnodes; v++ {
		binary.BigEndian.PutUint32(key[:4], uint32(v))
		var best sql.ActorID
		var bestWeight uint32
		for i, a := range actors {
			binary.BigEndian.PutUint32(key[4:], uint32(a))
			weight := murmur3.Sum32(key[:])
			if i == 0 || weight > bestWeight || (weight == bestWeight && a < best) {
				best = a
				bestWeight = weight
			}
		}
		mapping[v] = best
	}
	return mapping
}
