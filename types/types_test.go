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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Asc, ParseDirection(""))
	assert.Equal(t, Asc, ParseDirection("ASC"))
	assert.Equal(t, Desc, ParseDirection(" desc "))
	assert.False(t, ParseDirection("sideways").IsValid())
	assert.Equal(t, "DESC", Desc.String())
	assert.Equal(t, "asc", Asc.Name())
}

func TestParseOperator(t *testing.T) {
	cases := map[string]Operator{
		"":          OpEq,
		"=":         OpEq,
		"!=":        OpNotEq,
		"<>":        OpNotEq,
		">=":        OpGte,
		"like":      OpLike,
		"not  like": OpNotLike,
		"ILIKE":     OpILike,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseOperator(in), "operator %q", in)
	}
	assert.False(t, ParseOperator("=~").IsValid())
	assert.Equal(t, "NOT LIKE", OpNotLike.String())
	assert.Equal(t, IllegalName, Operator(99).String())
}

func TestPageRequestDefaults(t *testing.T) {
	p := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, DefaultPerPage, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())

	p = NewPageRequestWithOrders(3, 10, []string{"name"})
	assert.Equal(t, 20, p.GetOffset())
	assert.Nil(t, p.GetFilter())
}

func TestNewPagination(t *testing.T) {
	a, b := 1, 2
	p := NewPagination([]*int{&a, &b}, 7, 2, 5, "")
	assert.Equal(t, DefaultPageName, p.PageName)
	assert.Equal(t, 2, p.LastPage)
	assert.Equal(t, 6, p.From)
	assert.Equal(t, 7, p.To)
	assert.False(t, p.HasMorePages())
	assert.False(t, p.OnFirstPage())

	empty := NewDefaultPagination[int](1, 10)
	assert.Equal(t, 1, empty.LastPage)
	assert.Zero(t, empty.From)
	assert.NotNil(t, empty.Items)
}

func TestAttributesColumn(t *testing.T) {
	attrs := Attributes{"name": "ada", "age": 36}
	assert.Equal(t, []string{"age", "name"}, attrs.Keys())
	assert.Equal(t, Attributes{"name": "ada"}, attrs.Only("name", "missing"))

	v, err := attrs.Value()
	require.NoError(t, err)

	var back Attributes
	require.NoError(t, back.Scan(v))
	assert.Equal(t, "ada", back["name"])
	assert.EqualValues(t, 36, back["age"])

	require.NoError(t, back.Scan(`{"k":"v"}`))
	assert.Equal(t, "v", back["k"])
	assert.Error(t, back.Scan(42))
}
