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

// Task is a unit of work handed over by the workflow engine. It is
// read-only to this package.
type Task struct {
	// Name is the engine-facing task name, may contain underscores.
	Name string

	// ID is an opaque identifier assigned by the engine.
	ID string

	// Resources is the loose resource bag declared on the task.
	Resources ResourceSet
}

// ResourceSet is the engine's dynamically typed resource mapping. Values
// are scalars: counts arrive as integers or floats, quantities as strings.
type ResourceSet map[string]interface{}

// Int returns the value for key as an int64, reporting whether the key was
// present with an integral value.
func (r ResourceSet) Int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// String returns the value for key as a string, reporting whether the key
// was present with a string value.
func (r ResourceSet) String(key string) (string, bool) {
	v, ok := r[key].(string)
	return v, ok
}
