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
	"path/filepath"

	"github.com/pkg/errors"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Client bundles the typed and dynamic Kubernetes clients the executor
// needs. Constructed once per process and injected into every handle so
// tests can substitute fakes.
type Client struct {
	// Kubernetes serves typed batch and core operations.
	Kubernetes kubernetes.Interface

	// Dynamic serves custom resources, e.g. MiniClusters.
	Dynamic dynamic.Interface
}

// NewClient builds cluster clients from the first working configuration:
// in-cluster, then $KUBECONFIG, then ~/.kube/config.
func NewClient() (*Client, error) {
	cfg, err := restConfig()
	if err != nil {
		return nil, err
	}

	kube, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create core client")
	}

	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create dynamic client")
	}

	return &Client{Kubernetes: kube, Dynamic: dyn}, nil
}

func restConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}

	if kc := os.Getenv("KUBECONFIG"); kc != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", kc)
		return cfg, errors.Wrapf(err, "could not load kubeconfig from %s", kc)
	}

	home := homedir.HomeDir()
	if home == "" {
		return nil, errors.New("cannot determine home directory, set KUBECONFIG")
	}
	kc := filepath.Join(home, ".kube", "config")
	cfg, err := clientcmd.BuildConfigFromFlags("", kc)
	return cfg, errors.Wrapf(err, "could not load kubeconfig from %s", kc)
}
