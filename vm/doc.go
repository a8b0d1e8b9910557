// Package vm implements the BackTalker runtime.
//
// This package contains:
//   - Pattern expansion into concrete call signatures
//   - Scopes with token-trie function registries
//   - Argument binding with vivification
//   - The cooperative stack machine and its single-assignment results
//   - The Evaluator facade and the Library builder
package vm
