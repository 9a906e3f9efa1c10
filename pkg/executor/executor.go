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

// Package executor generates, submits and monitors Kubernetes batch
// workloads on behalf of a workflow engine. Jobs are created suspended
// behind a Kueue local queue label; admission is decided externally.
package executor

import (
	"context"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/runtime"
)

// queueLabel is the label Kueue watches to claim a workload for admission.
const queueLabel = "kueue.x-k8s.io/queue-name"

// JobStatus is the closed set of states reported back to the workflow
// engine. Exactly one value is returned per Status call.
type JobStatus string

const (
	StatusActive    JobStatus = "ACTIVE"
	StatusReady     JobStatus = "READY"
	StatusFailed    JobStatus = "FAILED"
	StatusSucceeded JobStatus = "SUCCEEDED"
	StatusUnknown   JobStatus = "UNKNOWN"
)

var (
	// ErrNotSubmitted is returned when Status or WriteLog is called before
	// Submit has recorded a cluster-assigned name. This is a caller bug,
	// not a runtime condition to retry.
	ErrNotSubmitted = errors.New("job has not been submitted")

	// ErrStatusNotSupported is returned by backends that do not map a
	// native status yet.
	ErrStatusNotSupported = errors.New("status is not supported for this backend")
)

// JobSpec carries the execution parameters shared by both backends.
// Resource requests come from the task itself, not from here.
type JobSpec struct {
	Image       string
	Command     string
	Args        []string
	WorkingDir  string
	Environment map[string]string
}

// KubernetesObject is the per-task execution handle implemented by each
// backend. A handle is bound to exactly one task and one config for its
// lifetime and must not be reused. Handles for different tasks are fully
// independent and may be driven concurrently; calls on a single handle are
// expected in Generate, Submit, Status..., WriteLog order.
type KubernetesObject interface {
	// Generate builds the backend submission object in memory. It has no
	// side effects; callers may inspect or adjust the object before Submit.
	Generate(spec JobSpec) (runtime.Object, error)

	// Submit sends a generated object to the cluster and records the
	// cluster-assigned name. Calling it twice creates two cluster objects.
	Submit(ctx context.Context, obj runtime.Object) error

	// Status reads the backend-native status and maps it to a JobStatus.
	// Transport failures are returned as errors, never folded into
	// StatusUnknown.
	Status(ctx context.Context) (JobStatus, error)

	// WriteLog writes the log of every pod belonging to the submitted job
	// to <logPrefix>-<podName>.txt. Zero matching pods writes zero files.
	WriteLog(ctx context.Context, logPrefix string) error

	// JobName returns the cluster-assigned name, empty before submission.
	JobName() string
}
