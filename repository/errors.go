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

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("entity not found")

	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidDirection = errors.New("invalid order direction")
)

// ConfigurationError is returned by New when no entity descriptor is bound or
// the container cannot resolve it.
type ConfigurationError struct {
	Descriptor string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.Descriptor == "" {
		return "repository configuration error: " + e.Reason
	}
	return fmt.Sprintf("repository configuration error for %q: %s", e.Descriptor, e.Reason)
}

// TypeMismatchError is returned by New when the resolved factory does not
// produce a model the repository can construct, persist and query.
type TypeMismatchError struct {
	Descriptor string
	Expected   string
	Actual     string
	Reason     string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("descriptor %q resolves to %s, expected %s: %s", e.Descriptor, e.Actual, e.Expected, e.Reason)
}

// MethodNotFoundError is returned by Call when neither the repository nor the
// model declares the requested scope.
type MethodNotFoundError struct {
	Repository string
	Method     string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("call to undefined method %s::%s()", e.Repository, e.Method)
}

// NotFoundError reports an empty First/Find result. It matches ErrNotFound
// and unwraps to the driver error (sql.ErrNoRows).
type NotFoundError struct {
	Model string
	err   error
}

func (e *NotFoundError) Error() string {
	return e.Model + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.err
}
