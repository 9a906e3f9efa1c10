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

package v1alpha1

import "k8s.io/apimachinery/pkg/runtime"

// DeepCopyInto copies the receiver into out.
func (in *MiniCluster) DeepCopyInto(out *MiniCluster) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
}

// DeepCopy returns a deep copy of the MiniCluster.
func (in *MiniCluster) DeepCopy() *MiniCluster {
	if in == nil {
		return nil
	}
	out := new(MiniCluster)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *MiniCluster) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver into out.
func (in *MiniClusterSpec) DeepCopyInto(out *MiniClusterSpec) {
	*out = *in
	if in.JobLabels != nil {
		out.JobLabels = make(map[string]string, len(in.JobLabels))
		for k, v := range in.JobLabels {
			out.JobLabels[k] = v
		}
	}
	if in.Containers != nil {
		out.Containers = make([]MiniClusterContainer, len(in.Containers))
		for i := range in.Containers {
			in.Containers[i].DeepCopyInto(&out.Containers[i])
		}
	}
	out.Logging = in.Logging
}

// DeepCopyInto copies the receiver into out.
func (in *MiniClusterContainer) DeepCopyInto(out *MiniClusterContainer) {
	*out = *in
	if in.Environment != nil {
		out.Environment = make(map[string]string, len(in.Environment))
		for k, v := range in.Environment {
			out.Environment[k] = v
		}
	}
	out.Resources.Limits = in.Resources.Limits.DeepCopy()
	out.Resources.Requests = in.Resources.Requests.DeepCopy()
}

// DeepCopy returns a deep copy of the resource list.
func (in ResourceList) DeepCopy() ResourceList {
	if in == nil {
		return nil
	}
	out := make(ResourceList, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
