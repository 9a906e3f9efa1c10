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
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"

	fluxv1alpha1 "github.com/Quantum-Platinum-Cloud/snakemake-executor-kueue/pkg/flux/v1alpha1"
)

// MiniCluster runs a task as a Flux Operator MiniCluster custom resource.
type MiniCluster struct {
	objectBase
}

var _ KubernetesObject = (*MiniCluster)(nil)

// NewMiniCluster returns a handle bound to the given task for its lifetime.
func NewMiniCluster(client *Client, cfg *Config, task Task) *MiniCluster {
	return &MiniCluster{objectBase{task: task, cfg: cfg, client: client}}
}

// Generate builds the MiniCluster object for the task. The operator takes
// a single shell-style command string, not an argument vector, so command
// and args are joined with spaces.
func (m *MiniCluster) Generate(spec JobSpec) (runtime.Object, error) {
	if spec.Image == "" || spec.Command == "" {
		return nil, errors.New("image and command must not be empty")
	}

	res := NormalizeResources(m.task)

	command := spec.Command
	if len(spec.Args) > 0 {
		command += " " + strings.Join(spec.Args, " ")
	}

	// A task with no cores gets no cpu limit at all; a literal 0 would
	// make the container unschedulable.
	limits := fluxv1alpha1.ResourceList{
		"memory": intstr.FromString(res.Memory),
	}
	if res.Cores != 0 {
		limits["cpu"] = intstr.FromInt(int(res.Cores))
	}

	mc := &fluxv1alpha1.MiniCluster{
		TypeMeta: metav1.TypeMeta{
			APIVersion: fluxv1alpha1.APIVersion(),
			Kind:       fluxv1alpha1.Kind,
		},
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: m.JobPrefix(),
			Namespace:    m.cfg.Namespace,
		},
		Spec: fluxv1alpha1.MiniClusterSpec{
			JobLabels: map[string]string{
				queueLabel: m.cfg.QueueName,
			},
			Containers: []fluxv1alpha1.MiniClusterContainer{
				{
					Command:     command,
					Environment: spec.Environment,
					Image:       spec.Image,
					Resources: fluxv1alpha1.ContainerResources{
						Limits: limits,
					},
				},
			},
			WorkingDir: spec.WorkingDir,
			Size:       res.Nodes,
			Tasks:      res.Tasks,
			// Keep broker logging verbose for now.
			Logging: fluxv1alpha1.MiniClusterLogging{Quiet: false},
		},
	}
	if res.DeadlineSeconds != nil {
		mc.Spec.Deadline = *res.DeadlineSeconds
	}
	return mc, nil
}

// Submit creates the MiniCluster through the dynamic client and records
// its assigned name.
func (m *MiniCluster) Submit(ctx context.Context, obj runtime.Object) error {
	mc, ok := obj.(*fluxv1alpha1.MiniCluster)
	if !ok {
		return errors.Errorf("expected *v1alpha1.MiniCluster, got %T", obj)
	}

	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(mc)
	if err != nil {
		return errors.Wrap(err, "could not convert minicluster to unstructured")
	}

	created, err := m.client.Dynamic.
		Resource(fluxv1alpha1.GroupVersionResource()).
		Namespace(m.cfg.Namespace).
		Create(ctx, &unstructured.Unstructured{Object: content}, metav1.CreateOptions{})
	if err != nil {
		return errors.Wrap(err, "could not create minicluster")
	}

	m.jobName = created.GetName()
	log.Debugf("Submitted minicluster %q to namespace %q", m.jobName, m.cfg.Namespace)
	return nil
}

// Status is not mapped for this backend: the Flux operator's native status
// schema is not confirmed yet. Callers distinguish this from both transport
// failures and StatusUnknown via ErrStatusNotSupported.
func (m *MiniCluster) Status(ctx context.Context) (JobStatus, error) {
	if err := m.submitted(); err != nil {
		return StatusUnknown, err
	}
	return StatusUnknown, ErrStatusNotSupported
}
