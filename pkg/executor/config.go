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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the submission-time configuration shared by all jobs in a run.
// It is immutable for the lifetime of a run and passed by pointer into
// every handle.
type Config struct {
	// Namespace jobs are created in.
	Namespace string `yaml:"namespace"`

	// QueueName is the Kueue local queue label value attached to every
	// generated object.
	QueueName string `yaml:"queue_name"`
}

// LoadConfig reads a run configuration from a YAML file. The namespace
// defaults to "default"; the queue name is required since an unlabelled
// job would never be admitted.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open config")
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "could not decode config")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.QueueName == "" {
		return nil, errors.New("queue_name must be set")
	}
	return &cfg, nil
}
