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

// Resource keys the workflow engine sets on a task.
const (
	ResourceCores   = "_cores"
	ResourceNodes   = "_nodes"
	ResourceMemory  = "kueue.memory"
	ResourceTasks   = "kueue.tasks"
	ResourceRuntime = "runtime"
)

// defaultMemory is applied when a task declares no memory request. The same
// unit is used for both backends.
const defaultMemory = "200Mi"

// NormalizedResources is the typed view of a task's resource bag with
// defaults applied. It is recomputed on every Generate call and never
// cached, so generator code never re-reads the loose map.
type NormalizedResources struct {
	// Cores and Nodes pass through verbatim. A missing value stays zero
	// and the generators leave the corresponding object fields unset, so
	// cluster defaults apply.
	Cores int64
	Nodes int32

	// Memory is a Kubernetes quantity string, defaulted to 200Mi.
	Memory string

	// Tasks is the MiniCluster task count, defaulted to 1.
	Tasks int32

	// DeadlineSeconds is nil when the task declares no runtime limit.
	DeadlineSeconds *int64
}

// NormalizeResources derives the typed resource set for a task. Pure
// function of the task's resource bag; defaulting never fails.
func NormalizeResources(task Task) NormalizedResources {
	nr := NormalizedResources{
		Memory: defaultMemory,
		Tasks:  1,
	}

	if cores, ok := task.Resources.Int(ResourceCores); ok {
		nr.Cores = cores
	}
	if nodes, ok := task.Resources.Int(ResourceNodes); ok {
		nr.Nodes = int32(nodes)
	}
	if memory, ok := task.Resources.String(ResourceMemory); ok && memory != "" {
		nr.Memory = memory
	}
	if tasks, ok := task.Resources.Int(ResourceTasks); ok && tasks != 0 {
		nr.Tasks = int32(tasks)
	}
	// A zero runtime is treated as absent; a deadline of zero seconds
	// would expire the job the moment it is admitted.
	if runtime, ok := task.Resources.Int(ResourceRuntime); ok && runtime != 0 {
		deadline := runtime
		nr.DeadlineSeconds = &deadline
	}

	return nr
}
