// Package source obtains the library's source tree.
//
// All Git operations are performed by shelling out to the git binary via
// the runner package, rather than using a Git library like go-git. This
// approach:
//   - Uses the exact same Git behavior (credentials, proxies, config) the
//     user sees in their terminal
//   - Keeps clone progress visible, since it is streamed to the terminal
//
// Three origins are possible, in order of preference:
//  1. The current directory is already a checkout of the library. It is
//     used in place and never switched to another ref, since that would
//     clobber the developer's work.
//  2. The source directory holds an earlier clone. Its refs are fetched
//     and the requested ref is checked out.
//  3. Nothing exists yet. The repository is cloned and the ref checked out.
package source
