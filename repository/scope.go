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

package repository

// scopeRegistry resolves scope names for one repository. Repository scopes
// shadow model scopes of the same name.
type scopeRegistry[T any] struct {
	repository map[string]RepositoryScope[T]
	model      map[string]ModelScope
}

func newScopeRegistry[T any](model interface{}, scopes map[string]RepositoryScope[T]) *scopeRegistry[T] {
	s := &scopeRegistry[T]{
		repository: make(map[string]RepositoryScope[T], len(scopes)),
		model:      make(map[string]ModelScope),
	}
	if provider, ok := model.(ScopeProvider); ok {
		for name, scope := range provider.Scopes() {
			if scope != nil {
				s.model[name] = scope
			}
		}
	}
	for name, scope := range scopes {
		if scope != nil {
			s.repository[name] = scope
		}
	}
	return s
}

func (s *scopeRegistry[T]) lookup(name string) (RepositoryScope[T], ModelScope, bool) {
	if scope, ok := s.repository[name]; ok {
		return scope, nil, true
	}
	if scope, ok := s.model[name]; ok {
		return nil, scope, true
	}
	return nil, nil, false
}
