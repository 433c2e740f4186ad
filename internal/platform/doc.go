// Package platform decides whether the host can run the AVX-only build.
//
// Detection mirrors what a shell user would check by hand: the kernel name
// and machine from uname, and the "flags" line of /proc/cpuinfo. When
// /proc/cpuinfo is unavailable the CPUID feature set reported by
// github.com/klauspost/cpuid/v2 is used instead, translated to the kernel's
// flag names. golang.org/x/sys/cpu supplies one extra fact: whether the OS
// has enabled the AVX register state, which the flag list alone does not
// prove.
//
// Only simple flag presence checks are made. Nothing here tries to guess
// microarchitecture or performance.
package platform
