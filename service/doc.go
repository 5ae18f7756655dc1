// Package service wraps the lock-free stack with the pieces a running
// server needs: sequence IDs for pushed items, a checkpoint of pending
// items across restarts, and logging.
//
// It is decoupled from network transports like gRPC.
package service
