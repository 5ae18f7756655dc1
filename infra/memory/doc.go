// Package memory provides the low-level primitives for safe node
// reclamation. It includes the intrusive Node cell, the Epoch tracker
// that counts in-flight accessors and advances generations, the
// HazardList that parks retired nodes until their generation is
// over, and the Pool that hands released shells back out for reuse.
//
// The memory package is dependency-free and forms the foundation
// for the lock-free stack in domain/lifo.
package memory
