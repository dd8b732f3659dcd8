// Package domain contains the core entities of the task-assignment system:
// users with scheme-dependent roles, and tasks with a constrained status
// lifecycle. Entities validate themselves; persistence and HTTP concerns
// live in other packages.
package domain
