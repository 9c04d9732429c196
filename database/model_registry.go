/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"sort"
	"sync"
)

// SQLModel is a registered entity type. Name is the descriptor repositories
// are bound to, Instance returns a fresh struct pointer compatible with Bun
// on every call, and Priority orders table migrations (lower values first).
type SQLModel interface {
	Name() string
	Instance() interface{}
	Priority() int
}

// ModelRegistry stores SQL models by name and exposes them in a deterministic
// order. It is the descriptor resolver behind repositories.
type ModelRegistry interface {
	Register(models ...SQLModel)
	Lookup(name string) (SQLModel, bool)
	Resolve(name string) (func() interface{}, bool)
	Models() []SQLModel
}

type modelRegistry struct {
	models map[string]SQLModel
	order  []string
	mutex  sync.RWMutex
}

// NewModelRegistry returns an empty registry.
func NewModelRegistry() ModelRegistry {
	return &modelRegistry{models: make(map[string]SQLModel)}
}

// Register adds models; a model with an already registered name replaces it.
func (r *modelRegistry) Register(models ...SQLModel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, m := range models {
		if _, ok := r.models[m.Name()]; !ok {
			r.order = append(r.order, m.Name())
		}
		r.models[m.Name()] = m
	}
}

func (r *modelRegistry) Lookup(name string) (SQLModel, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

func (r *modelRegistry) Resolve(name string) (func() interface{}, bool) {
	m, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return m.Instance, true
}

// Models returns the registered models sorted by ascending priority,
// registration order breaking ties.
func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]SQLModel, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.models[name])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

type ModelAdapter struct {
	name     string
	factory  func() interface{}
	priority int
}

// NewModelAdapter wraps a descriptor name, an instance factory and a priority
// into an SQLModel.
func NewModelAdapter(name string, factory func() interface{}, priority int) SQLModel {
	return &ModelAdapter{
		name:     name,
		factory:  factory,
		priority: priority,
	}
}

// NewModel registers *T under name using new(T) as the factory.
func NewModel[T any](name string, priority int) SQLModel {
	return NewModelAdapter(name, func() interface{} { return new(T) }, priority)
}

func (a *ModelAdapter) Name() string { return a.name }

// Instance returns a new instance from the factory, or nil without one.
func (a *ModelAdapter) Instance() interface{} {
	if a.factory == nil {
		return nil
	}
	return a.factory()
}

// Priority returns the model's ordering value; lower values run earlier.
func (a *ModelAdapter) Priority() int {
	return a.priority
}

// RegisteredModelInstances returns one fresh instance per model in priority
// order, suitable for bun.DB.RegisterModel.
func RegisteredModelInstances(registry ModelRegistry) []interface{} {
	models := registry.Models()
	instances := make([]interface{}, 0, len(models))
	for _, model := range models {
		if inst := model.Instance(); inst != nil {
			instances = append(instances, inst)
		}
	}
	return instances
}
