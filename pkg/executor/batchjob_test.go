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
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func testJobSpec() JobSpec {
	return JobSpec{
		Image:   "quay.io/snakemake/snakemake:latest",
		Command: "snakemake",
		Args:    []string{"--cores", "4"},
	}
}

func generateBatchJob(t *testing.T, task Task, spec JobSpec) *batchv1.Job {
	t.Helper()
	obj, err := NewBatchJob(newFakeClient(), testConfig(), task).Generate(spec)
	require.NoError(t, err)
	job, ok := obj.(*batchv1.Job)
	require.True(t, ok)
	return job
}

func TestBatchJobGenerate(t *testing.T) {
	task := Task{
		Name: "align_reads",
		ID:   "42",
		Resources: ResourceSet{
			ResourceCores:  4,
			ResourceNodes:  2,
			ResourceMemory: "1Gi",
		},
	}
	job := generateBatchJob(t, task, JobSpec{
		Image:       "quay.io/snakemake/snakemake:latest",
		Command:     "snakemake",
		Args:        []string{"--cores", "4"},
		WorkingDir:  "/workdir",
		Environment: map[string]string{"FOO": "bar"},
	})

	require.Equal(t, "snakejob-align-reads-42", job.GenerateName)
	require.Equal(t, "user-queue", job.Labels["kueue.x-k8s.io/queue-name"])

	require.NotNil(t, job.Spec.Suspend)
	require.True(t, *job.Spec.Suspend)
	require.NotNil(t, job.Spec.Parallelism)
	require.Equal(t, int32(2), *job.Spec.Parallelism)
	require.Nil(t, job.Spec.ActiveDeadlineSeconds)

	require.Len(t, job.Spec.Template.Spec.Containers, 1)
	container := job.Spec.Template.Spec.Containers[0]
	require.Equal(t, []string{"snakemake"}, container.Command)
	require.Equal(t, []string{"--cores", "4"}, container.Args)
	require.Equal(t, "/workdir", container.WorkingDir)
	require.Equal(t, "4", container.Resources.Requests.Cpu().String())
	require.Equal(t, "1Gi", container.Resources.Requests.Memory().String())
	require.Len(t, container.Env, 1)
	require.Equal(t, "FOO", container.Env[0].Name)
}

func TestBatchJobGenerateCompletionsFixed(t *testing.T) {
	// Completions is a backend policy, independent of task resources.
	for _, resources := range []ResourceSet{
		nil,
		{ResourceNodes: 16},
		{ResourceCores: 1, ResourceTasks: 9},
	} {
		job := generateBatchJob(t, Task{Name: "t", ID: "1", Resources: resources}, testJobSpec())
		require.NotNil(t, job.Spec.Completions)
		require.Equal(t, int32(3), *job.Spec.Completions)
	}
}

func TestBatchJobGenerateDefaults(t *testing.T) {
	job := generateBatchJob(t, Task{Name: "t", ID: "1"}, testJobSpec())

	container := job.Spec.Template.Spec.Containers[0]
	require.Equal(t, "200Mi", container.Resources.Requests.Memory().String())
	require.Nil(t, job.Spec.ActiveDeadlineSeconds)
	require.Nil(t, container.Env)
}

func TestBatchJobGenerateOmitsAbsentResources(t *testing.T) {
	// With no nodes the parallelism field stays unset so the cluster
	// default of 1 applies; pinning 0 would leave an admitted job idle
	// forever. Same treatment for the cpu request.
	job := generateBatchJob(t, Task{Name: "t", ID: "1"}, testJobSpec())

	require.Nil(t, job.Spec.Parallelism)

	requests := job.Spec.Template.Spec.Containers[0].Resources.Requests
	_, ok := requests[corev1.ResourceCPU]
	require.False(t, ok)
	_, ok = requests[corev1.ResourceMemory]
	require.True(t, ok)
}

func TestBatchJobGenerateDeadline(t *testing.T) {
	task := Task{Name: "t", ID: "1", Resources: ResourceSet{ResourceRuntime: 300}}
	job := generateBatchJob(t, task, testJobSpec())

	require.NotNil(t, job.Spec.ActiveDeadlineSeconds)
	require.Equal(t, int64(300), *job.Spec.ActiveDeadlineSeconds)
}

func TestBatchJobGenerateInvalid(t *testing.T) {
	b := NewBatchJob(newFakeClient(), testConfig(), Task{Name: "t", ID: "1"})

	_, err := b.Generate(JobSpec{Command: "snakemake"})
	require.Error(t, err)

	_, err = b.Generate(JobSpec{Image: "alpine"})
	require.Error(t, err)

	_, err = b.Generate(JobSpec{Image: "alpine", Command: "true"})
	require.NoError(t, err)
}

func TestBatchJobSubmitRecordsName(t *testing.T) {
	b := NewBatchJob(newFakeClient(), testConfig(), Task{Name: "t", ID: "1"})

	obj, err := b.Generate(testJobSpec())
	require.NoError(t, err)

	// Callers may inspect and adjust the generated object before Submit.
	job := obj.(*batchv1.Job)
	job.Name = "snakejob-t-1-x7x7x"

	require.Equal(t, "", b.JobName())
	require.NoError(t, b.Submit(context.Background(), obj))
	require.Equal(t, "snakejob-t-1-x7x7x", b.JobName())
}

func TestBatchJobSubmitWrongType(t *testing.T) {
	b := NewBatchJob(newFakeClient(), testConfig(), Task{Name: "t", ID: "1"})
	err := b.Submit(context.Background(), &batchv1.CronJob{})
	require.Error(t, err)
}

func TestBatchJobStatusBeforeSubmit(t *testing.T) {
	b := NewBatchJob(newFakeClient(), testConfig(), Task{Name: "t", ID: "1"})
	_, err := b.Status(context.Background())
	require.ErrorIs(t, err, ErrNotSubmitted)
}

func TestBatchJobStatusMapping(t *testing.T) {
	ready := func(n int32) *int32 { return &n }

	tt := []struct {
		name   string
		status batchv1.JobStatus
		expect JobStatus
	}{
		{
			name:   "failure dominates activity",
			status: batchv1.JobStatus{Failed: 1, Active: 1},
			expect: StatusFailed,
		},
		{
			name:   "active",
			status: batchv1.JobStatus{Active: 2},
			expect: StatusActive,
		},
		{
			name:   "ready",
			status: batchv1.JobStatus{Ready: ready(1)},
			expect: StatusReady,
		},
		{
			name:   "all completions succeeded",
			status: batchv1.JobStatus{Succeeded: 3},
			expect: StatusSucceeded,
		},
		{
			name:   "partial success is not done",
			status: batchv1.JobStatus{Succeeded: 2},
			expect: StatusUnknown,
		},
		{
			name:   "no counters set",
			status: batchv1.JobStatus{},
			expect: StatusUnknown,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBatchJob(newFakeClient(), testConfig(), Task{Name: "t", ID: "1"})

			obj, err := b.Generate(testJobSpec())
			require.NoError(t, err)

			job := obj.(*batchv1.Job)
			job.Name = "snakejob-t-1-abcde"
			job.Status = tc.status
			require.NoError(t, b.Submit(context.Background(), obj))

			status, err := b.Status(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.expect, status)
		})
	}
}

func TestBatchJobStatusTransportError(t *testing.T) {
	client := newFakeClient()
	b := NewBatchJob(client, testConfig(), Task{Name: "t", ID: "1"})

	obj, err := b.Generate(testJobSpec())
	require.NoError(t, err)
	job := obj.(*batchv1.Job)
	job.Name = "snakejob-t-1-abcde"
	require.NoError(t, b.Submit(context.Background(), obj))

	// Deleting the job turns the next status read into a transport error,
	// not StatusUnknown.
	err = client.Kubernetes.BatchV1().Jobs(testConfig().Namespace).
		Delete(context.Background(), job.Name, metav1.DeleteOptions{})
	require.NoError(t, err)

	_, err = b.Status(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotSubmitted)
}
