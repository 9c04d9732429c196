// Package database provides connection management, configuration loading,
// the model registry used to resolve entity descriptors, table migrations,
// query hooks, SQL error classification and logging, built on top of Bun.
package database
