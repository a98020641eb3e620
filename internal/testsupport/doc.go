// Package testsupport provides shared fixtures for package tests: a config
// builder rooted in t.TempDir, stub binaries on PATH, and file helpers.
package testsupport
