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

// snakejob submits a single task and waits for it to finish. It owns the
// polling cadence; the executor package itself never polls.
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Quantum-Platinum-Cloud/snakemake-executor-kueue/pkg/executor"
)

var (
	configPath = flag.String("config", "config.yaml", "path to the run config (namespace, queue_name)")
	backend    = flag.String("backend", "job", "execution backend: job or minicluster")

	taskName = flag.String("name", "", "task name")
	taskID   = flag.String("id", "", "task id")

	image   = flag.String("image", "", "container image to run")
	command = flag.String("command", "", "command to execute; remaining arguments are passed to it")
	workDir = flag.String("workdir", "", "working directory inside the container")

	cores   = flag.Int64("cores", 0, "cpu cores to request")
	nodes   = flag.Int64("nodes", 0, "number of nodes")
	memory  = flag.String("memory", "", "memory request, e.g. 200Mi")
	tasks   = flag.Int64("tasks", 0, "minicluster task count")
	runtime = flag.Int64("runtime", 0, "runtime deadline in seconds")

	logPrefix = flag.String("log-prefix", "snakejob", "prefix for per-pod log files")
	poll      = flag.Duration("poll", 5*time.Second, "status poll interval")
)

type envFlags map[string]string

func (e envFlags) String() string {
	return fmt.Sprintf("%v", map[string]string(e))
}

func (e envFlags) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok {
		return errors.Errorf("expected KEY=VALUE, got %q", value)
	}
	e[k] = v
	return nil
}

func main() {
	environment := envFlags{}
	flag.Var(environment, "env", "environment variable as KEY=VALUE, may be repeated")
	flag.Parse()

	if *taskName == "" || *taskID == "" {
		log.Fatal("name and id should be provided")
	}
	if *image == "" || *command == "" {
		log.Fatal("image and command should be provided")
	}

	cfg, err := executor.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	spew.Dump(cfg)

	client, err := executor.NewClient()
	if err != nil {
		log.Fatal(err)
	}

	task := executor.Task{
		Name:      *taskName,
		ID:        *taskID,
		Resources: taskResources(),
	}

	var obj executor.KubernetesObject
	switch *backend {
	case "job":
		obj = executor.NewBatchJob(client, cfg, task)
	case "minicluster":
		obj = executor.NewMiniCluster(client, cfg, task)
	default:
		log.Fatalf("unknown backend %q", *backend)
	}

	spec := executor.JobSpec{
		Image:       *image,
		Command:     *command,
		Args:        flag.Args(),
		WorkingDir:  *workDir,
		Environment: environment,
	}

	ctx := context.Background()
	generated, err := obj.Generate(spec)
	if err != nil {
		log.Fatal(err)
	}
	if err := obj.Submit(ctx, generated); err != nil {
		log.Fatal(err)
	}
	log.Printf("Submitted %s, waiting for queue admission", obj.JobName())

	if err := wait(ctx, obj); err != nil {
		if errors.Is(err, executor.ErrStatusNotSupported) {
			log.Printf("Backend %q does not report status, not waiting", *backend)
			return
		}
		log.Fatal(err)
	}

	if err := obj.WriteLog(ctx, *logPrefix); err != nil {
		log.Fatal("collecting logs ", err)
	}
	log.Println("Job finished")
}

// wait polls the job status until a terminal state. Retry and backoff
// policy lives here, with the caller, not in the executor.
func wait(ctx context.Context, obj executor.KubernetesObject) error {
	ticker := time.NewTicker(*poll)
	defer ticker.Stop()

	for range ticker.C {
		status, err := obj.Status(ctx)
		if err != nil {
			return err
		}

		switch status {
		case executor.StatusSucceeded:
			return nil
		case executor.StatusFailed:
			return errors.Errorf("job %s failed", obj.JobName())
		default:
			log.Debugf("Job %s is %s", obj.JobName(), status)
		}
	}
	return nil
}

func taskResources() executor.ResourceSet {
	resources := executor.ResourceSet{}
	if *cores > 0 {
		resources[executor.ResourceCores] = *cores
	}
	if *nodes > 0 {
		resources[executor.ResourceNodes] = *nodes
	}
	if *memory != "" {
		resources[executor.ResourceMemory] = *memory
	}
	if *tasks > 0 {
		resources[executor.ResourceTasks] = *tasks
	}
	if *runtime > 0 {
		resources[executor.ResourceRuntime] = *runtime
	}
	return resources
}
