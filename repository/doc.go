// Package repository provides a generic, chainable repository facade over Bun:
// query composition (where/whereIn/search/order/limit and scopes), terminal
// calls (get/find/paginate/count/create) and SQL introspection, bound to a
// single entity type per repository instance.
package repository
