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

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Direction is the sort direction of an ORDER BY clause.
type Direction int

const (
	Asc Direction = iota
	Desc
)

var _ BaseEnum = Asc

// ParseDirection maps "asc"/"desc" (any case) to a Direction. An empty string is Asc.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc
	case "desc":
		return Desc
	default:
		return IllegalValue
	}
}

func (d Direction) IsValid() bool { return d == Asc || d == Desc }

func (d Direction) Number() int { return int(d) }

func (d Direction) String() string {
	switch d {
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	default:
		return IllegalName
	}
}

func (d Direction) Desc() string {
	switch d {
	case Asc:
		return "ascending"
	case Desc:
		return "descending"
	default:
		return IllegalDesc
	}
}

func (d Direction) Name() string { return strings.ToLower(d.String()) }

// Operator is a comparison operator accepted by where clauses.
type Operator int

const (
	OpEq Operator = iota
	OpNotEq
	OpLt
	OpLte
	OpGt
	OpGte
	OpLike
	OpNotLike
	OpILike
)

var _ BaseEnum = OpEq

var operatorSymbols = map[Operator]string{
	OpEq:      "=",
	OpNotEq:   "<>",
	OpLt:      "<",
	OpLte:     "<=",
	OpGt:      ">",
	OpGte:     ">=",
	OpLike:    "LIKE",
	OpNotLike: "NOT LIKE",
	OpILike:   "ILIKE",
}

var operatorDescs = map[Operator]string{
	OpEq:      "equal",
	OpNotEq:   "not equal",
	OpLt:      "less than",
	OpLte:     "less than or equal",
	OpGt:      "greater than",
	OpGte:     "greater than or equal",
	OpLike:    "pattern match",
	OpNotLike: "negated pattern match",
	OpILike:   "case-insensitive pattern match",
}

// ParseOperator maps an operator symbol to an Operator. "!=" is an alias of "<>"
// and an empty string is "=".
func ParseOperator(s string) Operator {
	sym := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	switch sym {
	case "":
		return OpEq
	case "!=":
		return OpNotEq
	}
	for op, v := range operatorSymbols {
		if v == sym {
			return op
		}
	}
	return IllegalValue
}

func (o Operator) IsValid() bool {
	_, ok := operatorSymbols[o]
	return ok
}

func (o Operator) Number() int { return int(o) }

// String returns the SQL symbol of the operator.
func (o Operator) String() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return IllegalName
}

func (o Operator) Desc() string {
	if s, ok := operatorDescs[o]; ok {
		return s
	}
	return IllegalDesc
}

func (o Operator) Name() string { return strings.ToLower(o.String()) }
