// Package api implements the HTTP surface: request decoding and validation,
// handlers for authentication, tasks, and user administration, and the
// mapping from internal errors to sanitized HTTP responses.
package api
