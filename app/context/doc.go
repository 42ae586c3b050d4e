// Package context holds what every junban command runs with: the filesystem,
// the process environment and file descriptors, the logger and the resolved
// settings. Both app and cli import it.
package context
