// Package core defines the shared language of the leapconsole system.
//
// This package contains:
//   - Domain entities (Row, TableRef, FileEntry)
//   - Wire types for the REST contract shared by the client and the backend
//   - Access code and folder path rules
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
