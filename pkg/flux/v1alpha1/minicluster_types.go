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

// Package v1alpha1 mirrors the subset of the Flux Operator's MiniCluster
// schema that the executor submits. The operator itself is external; these
// types exist so generated objects are structured rather than hand-built
// maps, and are converted to unstructured at the dynamic-client boundary.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const (
	// Group is the API group served by the Flux Operator.
	Group = "flux-framework.org"
	// Version is the served CRD version.
	Version = "v1alpha1"
	// Kind is the MiniCluster kind name.
	Kind = "MiniCluster"
	// Plural is the lowercase plural resource name.
	Plural = "miniclusters"
)

// GroupVersionResource returns the GVR used for dynamic-client operations
// on MiniClusters.
func GroupVersionResource() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: Group, Version: Version, Resource: Plural}
}

// APIVersion returns the group/version string for object TypeMeta.
func APIVersion() string {
	return Group + "/" + Version
}

// MiniCluster is a multi-node Flux cluster running a single batch workload.
type MiniCluster struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec MiniClusterSpec `json:"spec"`
}

// MiniClusterSpec describes the desired MiniCluster.
type MiniClusterSpec struct {
	// JobLabels are propagated to the batch job the operator creates.
	JobLabels map[string]string `json:"job_labels,omitempty"`

	// Containers defines the workload containers. The operator currently
	// runs exactly one.
	Containers []MiniClusterContainer `json:"containers"`

	// WorkingDir is the working directory for the workload command.
	WorkingDir string `json:"working_dir,omitempty"`

	// Size is the number of nodes in the cluster.
	Size int32 `json:"size,omitempty"`

	// Tasks is the number of tasks flux launches across the cluster.
	Tasks int32 `json:"tasks,omitempty"`

	// Deadline in seconds after which the operator fails the job.
	Deadline int64 `json:"deadline,omitempty"`

	// Logging tunes operator and broker output.
	Logging MiniClusterLogging `json:"logging,omitempty"`
}

// MiniClusterContainer is a single workload container definition.
type MiniClusterContainer struct {
	// Command is a single shell-style command string. The operator does not
	// accept a discrete argument vector.
	Command string `json:"command,omitempty"`

	// Environment is exported into the flux broker environment.
	Environment map[string]string `json:"environment,omitempty"`

	// Image is the container image to run.
	Image string `json:"image,omitempty"`

	// Resources holds container resource limits and requests.
	Resources ContainerResources `json:"resources,omitempty"`
}

// ContainerResources maps resource names to scalar quantities. The operator
// accepts integers (cpu counts) as well as quantity strings (memory).
type ContainerResources struct {
	Limits   ResourceList `json:"limits,omitempty"`
	Requests ResourceList `json:"requests,omitempty"`
}

// ResourceList is a loose resource name to quantity mapping.
type ResourceList map[string]intstr.IntOrString

// MiniClusterLogging controls broker log verbosity.
type MiniClusterLogging struct {
	// Quiet silences most operator and broker output when true.
	Quiet bool `json:"quiet"`
}
