// Copyright (c) 2023 The snakemake-executor-kueue authors. All rights reserved.
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

package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeResources(t *testing.T) {
	deadline := int64(600)

	tt := []struct {
		name      string
		resources ResourceSet
		expect    NormalizedResources
	}{
		{
			name:      "empty resources apply defaults",
			resources: ResourceSet{},
			expect: NormalizedResources{
				Memory: "200Mi",
				Tasks:  1,
			},
		},
		{
			name: "cores and nodes pass through",
			resources: ResourceSet{
				ResourceCores: 4,
				ResourceNodes: 2,
			},
			expect: NormalizedResources{
				Cores:  4,
				Nodes:  2,
				Memory: "200Mi",
				Tasks:  1,
			},
		},
		{
			name: "declared memory wins over default",
			resources: ResourceSet{
				ResourceMemory: "2Gi",
			},
			expect: NormalizedResources{
				Memory: "2Gi",
				Tasks:  1,
			},
		},
		{
			name: "empty memory string falls back to default",
			resources: ResourceSet{
				ResourceMemory: "",
			},
			expect: NormalizedResources{
				Memory: "200Mi",
				Tasks:  1,
			},
		},
		{
			name: "zero tasks falls back to one",
			resources: ResourceSet{
				ResourceTasks: 0,
			},
			expect: NormalizedResources{
				Memory: "200Mi",
				Tasks:  1,
			},
		},
		{
			name: "runtime becomes the deadline",
			resources: ResourceSet{
				ResourceRuntime: 600,
			},
			expect: NormalizedResources{
				Memory:          "200Mi",
				Tasks:           1,
				DeadlineSeconds: &deadline,
			},
		},
		{
			name: "zero runtime declares no deadline",
			resources: ResourceSet{
				ResourceRuntime: 0,
			},
			expect: NormalizedResources{
				Memory: "200Mi",
				Tasks:  1,
			},
		},
		{
			name: "float counts are accepted",
			resources: ResourceSet{
				ResourceCores: float64(8),
				ResourceTasks: float64(3),
			},
			expect: NormalizedResources{
				Cores:  8,
				Memory: "200Mi",
				Tasks:  3,
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeResources(Task{Name: "t", ID: "1", Resources: tc.resources})
			require.Equal(t, tc.expect, got)
		})
	}
}
