// Package subprocess supervises a single worker child process.
//
// Start spawns the worker with stdin, stdout, and stderr pipes and reports
// back through Handlers: raw stdout chunks, stderr lines, a single exit
// notification, and unexpected pipe read failures. Process.Write sends
// bytes to the worker's stdin and Process.Stop kills it.
package subprocess
