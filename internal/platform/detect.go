package platform

import (
	"bufio"
	"context"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sys/cpu"

	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
)

// Flag sources recorded in HostInfo.FlagSource.
const (
	SourceCPUInfo = "/proc/cpuinfo"
	SourceCPUID   = "cpuid"
)

// HostInfo is what Check needs to know about the machine.
type HostInfo struct {
	// OS is the kernel name as printed by `uname -s` (e.g. "Linux").
	OS string `json:"os"`

	// Arch is the machine name as printed by `uname -m` (e.g. "x86_64").
	Arch string `json:"arch"`

	// Model is the CPU model string, if known.
	Model string `json:"model,omitempty"`

	// Flags are the lowercase CPU feature flags, sorted.
	Flags []string `json:"flags"`

	// FlagSource tells where Flags came from.
	FlagSource string `json:"flagSource"`

	// AVXStateChecked is true when the running binary could query XGETBV,
	// i.e. it is itself an amd64 binary.
	AVXStateChecked bool `json:"avxStateChecked"`

	// OSEnabledAVX reports whether the OS saves AVX registers on context
	// switch. Only meaningful when AVXStateChecked is true.
	OSEnabledAVX bool `json:"osEnabledAvx"`
}

// Has reports whether flag is in the flag list.
func (h *HostInfo) Has(flag string) bool {
	i := sort.SearchStrings(h.Flags, flag)
	return i < len(h.Flags) && h.Flags[i] == flag
}

// Detector gathers HostInfo.
type Detector struct {
	// Runner executes uname.
	Runner runner.Runner

	// CPUInfoPath defaults to /proc/cpuinfo.
	CPUInfoPath string
}

// NewDetector creates a Detector using r for uname.
func NewDetector(r runner.Runner) *Detector {
	return &Detector{Runner: r, CPUInfoPath: SourceCPUInfo}
}

// Detect never fails: every probe has a fallback. A HostInfo with an empty
// flag list simply fails Check.
func (d *Detector) Detect(ctx context.Context) *HostInfo {
	info := &HostInfo{
		OS:   d.uname(ctx, "-s", kernelName(runtime.GOOS)),
		Arch: d.uname(ctx, "-m", machineName(runtime.GOARCH)),
	}

	path := d.CPUInfoPath
	if path == "" {
		path = SourceCPUInfo
	}
	if f, err := os.Open(path); err == nil {
		info.Model, info.Flags = ParseCPUInfo(f)
		f.Close()
		info.FlagSource = SourceCPUInfo
	}
	if len(info.Flags) == 0 {
		info.Flags = cpuidFlags(cpuid.CPU.FeatureSet())
		if info.Model == "" {
			info.Model = cpuid.CPU.BrandName
		}
		info.FlagSource = SourceCPUID
	}
	sort.Strings(info.Flags)

	info.AVXStateChecked = runtime.GOARCH == "amd64"
	info.OSEnabledAVX = cpu.X86.HasAVX

	return info
}

// uname runs `uname <flag>` and falls back when uname is missing or fails.
func (d *Detector) uname(ctx context.Context, flag, fallback string) string {
	if d.Runner == nil {
		return fallback
	}
	res, err := d.Runner.Run(ctx, runner.Cmd{Name: "uname", Args: []string{flag}, Query: true})
	if err != nil {
		return fallback
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		return out
	}
	return fallback
}

// ParseCPUInfo extracts the model name and the flag list of the first
// processor entry. Both the x86 ("flags") and ARM ("Features") spellings
// are understood.
func ParseCPUInfo(r io.Reader) (model string, flags []string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "model name":
			if model == "" {
				model = val
			}
		case "flags", "Features":
			if flags == nil {
				flags = strings.Fields(strings.ToLower(val))
			}
		}
	}
	return model, flags
}

// cpuidNames maps cpuid feature names whose kernel spelling is not simply
// the lowercase form.
var cpuidNames = map[string]string{
	"AVX512BF16": "avx512_bf16",
	"AVX512VNNI": "avx512_vnni",
	"AVXVNNI":    "avx_vnni",
	"AMXBF16":    "amx_bf16",
	"AMXINT8":    "amx_int8",
	"AMXTILE":    "amx_tile",
	"SSE4":       "sse4_1",
	"SSE42":      "sse4_2",
	"F16C":       "f16c",
}

func cpuidFlags(names []string) []string {
	flags := make([]string, 0, len(names))
	for _, n := range names {
		if mapped, ok := cpuidNames[n]; ok {
			flags = append(flags, mapped)
			continue
		}
		flags = append(flags, strings.ToLower(n))
	}
	return flags
}

// kernelName maps GOOS to the uname -s spelling.
func kernelName(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "freebsd":
		return "FreeBSD"
	case "windows":
		return "Windows_NT"
	default:
		return goos
	}
}

// machineName maps GOARCH to the uname -m spelling.
func machineName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	default:
		return goarch
	}
}
