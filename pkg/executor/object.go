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
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// objectBase carries the state and behavior shared by both backends: the
// task/config binding, the cluster-assigned name, and log collection.
type objectBase struct {
	task   Task
	cfg    *Config
	client *Client

	// jobName is set exactly once, by Submit.
	jobName string
}

// JobPrefix derives the deterministic object name prefix for the task.
// Kubernetes object names forbid underscores, so they become hyphens. The
// cluster appends a random suffix on creation via generateName.
func (o *objectBase) JobPrefix() string {
	return strings.ReplaceAll(fmt.Sprintf("snakejob-%s-%s", o.task.Name, o.task.ID), "_", "-")
}

// JobName returns the cluster-assigned name, empty before submission.
func (o *objectBase) JobName() string {
	return o.jobName
}

// submitted guards handle-keyed operations against use before Submit.
func (o *objectBase) submitted() error {
	if o.jobName == "" {
		return ErrNotSubmitted
	}
	return nil
}

// WriteLog writes one <logPrefix>-<podName>.txt file per pod of the
// submitted job. Pods are matched on the job-name label, which both the
// batch controller and the Flux operator set, so the implementation is
// backend-agnostic. Zero matching pods writes zero files.
func (o *objectBase) WriteLog(ctx context.Context, logPrefix string) error {
	if err := o.submitted(); err != nil {
		return err
	}

	selector := labels.Set{"job-name": o.jobName}.AsSelector().String()
	pods, err := o.client.Kubernetes.CoreV1().Pods(o.cfg.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return errors.Wrapf(err, "could not list pods for job %s", o.jobName)
	}

	for _, pod := range pods.Items {
		if err := o.writePodLog(ctx, pod.Name, logPrefix); err != nil {
			return err
		}
	}
	return nil
}

func (o *objectBase) writePodLog(ctx context.Context, podName, logPrefix string) error {
	stream, err := o.client.Kubernetes.CoreV1().Pods(o.cfg.Namespace).
		GetLogs(podName, &corev1.PodLogOptions{}).
		Stream(ctx)
	if err != nil {
		return errors.Wrapf(err, "could not read log of pod %s", podName)
	}
	defer stream.Close()

	logFile := fmt.Sprintf("%s-%s.txt", logPrefix, podName)
	log.Debugf("Writing output to %s", logFile)

	f, err := os.Create(logFile)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", logFile)
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		return errors.Wrapf(err, "could not write %s", logFile)
	}
	return f.Close()
}

// envVars converts an environment mapping into sorted EnvVar entries so
// generated objects are deterministic.
func envVars(environment map[string]string) []corev1.EnvVar {
	if len(environment) == 0 {
		return nil
	}
	vars := make([]corev1.EnvVar, 0, len(environment))
	for k, v := range environment {
		vars = append(vars, corev1.EnvVar{Name: k, Value: v})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}
