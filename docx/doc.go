// Package docx is the public facade over safedocx's editing engine: open a
// WordprocessingML package, apply the edit operations of internal/docedit,
// and write back a clean or redlined .docx.
//
// # Concurrency
//
// Package docx is not safe for concurrent use. A single [Document] must be
// accessed from one goroutine at a time, or protected by an external mutex.
// Independent Document instances may be used concurrently.
package docx
