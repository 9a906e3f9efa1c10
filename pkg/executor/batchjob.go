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

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// batchJobCompletions is a fixed backend policy: every job is replicated
// three times and the first success wins. Not configurable per task.
const batchJobCompletions = int32(3)

// BatchJob runs a task as a plain batch/v1 Job.
type BatchJob struct {
	objectBase
}

var _ KubernetesObject = (*BatchJob)(nil)

// NewBatchJob returns a handle bound to the given task for its lifetime.
func NewBatchJob(client *Client, cfg *Config, task Task) *BatchJob {
	return &BatchJob{objectBase{task: task, cfg: cfg, client: client}}
}

// Generate builds the suspended Job for the task. The job stays inert
// until Kueue flips the suspend flag; this package never does.
func (b *BatchJob) Generate(spec JobSpec) (runtime.Object, error) {
	if spec.Image == "" || spec.Command == "" {
		return nil, errors.New("image and command must not be empty")
	}

	res := NormalizeResources(b.task)
	memory, err := resource.ParseQuantity(res.Memory)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid memory quantity %q", res.Memory)
	}

	// When the task declares no nodes the field is omitted and the
	// cluster's default parallelism of 1 applies; pinning 0 would park
	// the job forever after admission.
	var parallelism *int32
	if res.Nodes != 0 {
		nodes := res.Nodes
		parallelism = &nodes
	}

	requests := corev1.ResourceList{
		corev1.ResourceMemory: memory,
	}
	if res.Cores != 0 {
		requests[corev1.ResourceCPU] = *resource.NewQuantity(res.Cores, resource.DecimalSI)
	}

	completions := batchJobCompletions
	suspend := true

	return &batchv1.Job{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "batch/v1",
			Kind:       "Job",
		},
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: b.JobPrefix(),
			Labels: map[string]string{
				queueLabel: b.cfg.QueueName,
			},
		},
		Spec: batchv1.JobSpec{
			Parallelism:           parallelism,
			Completions:           &completions,
			Suspend:               &suspend,
			ActiveDeadlineSeconds: res.DeadlineSeconds,
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:       b.JobPrefix(),
							Image:      spec.Image,
							Command:    []string{spec.Command},
							Args:       spec.Args,
							WorkingDir: spec.WorkingDir,
							Env:        envVars(spec.Environment),
							Resources: corev1.ResourceRequirements{
								Requests: requests,
							},
						},
					},
				},
			},
		},
	}, nil
}

// Submit creates the job on the cluster and records its assigned name.
func (b *BatchJob) Submit(ctx context.Context, obj runtime.Object) error {
	job, ok := obj.(*batchv1.Job)
	if !ok {
		return errors.Errorf("expected *batchv1.Job, got %T", obj)
	}

	created, err := b.client.Kubernetes.BatchV1().Jobs(b.cfg.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return errors.Wrap(err, "could not create job")
	}

	b.jobName = created.Name
	log.Debugf("Submitted job %q to namespace %q", b.jobName, b.cfg.Namespace)
	return nil
}

// Status reads the job's native status and maps it to a JobStatus. The
// native counters are not mutually exclusive; the order below encodes
// which one wins.
func (b *BatchJob) Status(ctx context.Context) (JobStatus, error) {
	if err := b.submitted(); err != nil {
		return StatusUnknown, err
	}

	job, err := b.client.Kubernetes.BatchV1().Jobs(b.cfg.Namespace).Get(ctx, b.jobName, metav1.GetOptions{})
	if err != nil {
		return StatusUnknown, errors.Wrapf(err, "could not read job %s", b.jobName)
	}

	// Any failed pod marks the job failed, even while others run.
	if job.Status.Failed != 0 {
		return StatusFailed, nil
	}
	if job.Status.Active > 0 {
		return StatusActive, nil
	}
	if job.Status.Ready != nil && *job.Status.Ready > 0 {
		return StatusReady, nil
	}

	// Done only when every declared completion succeeded.
	succeeded := job.Status.Succeeded
	if succeeded != 0 && job.Spec.Completions != nil && succeeded == *job.Spec.Completions {
		return StatusSucceeded, nil
	}
	return StatusUnknown, nil
}
