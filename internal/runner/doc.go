// Package runner executes the external tools that do the actual
// provisioning work: apt-get, python, pip and git.
//
// Every step of the pipeline goes through the Runner interface rather than
// calling os/exec directly. This keeps steps testable with the recording
// fake in runnertest and lets --dry-run print mutating commands instead of
// executing them.
//
// Commands come in two flavors:
//   - Query commands (Cmd.Query) have their stdout captured and returned.
//     They only inspect the system, so they run even in dry-run mode.
//   - All other commands stream their output to the user's terminal, since
//     pip and compiler output is long-running and worth watching.
package runner
