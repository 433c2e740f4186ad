package platform

import (
	"fmt"
	"strings"

	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
)

const (
	// RequiredOS is the only supported kernel.
	RequiredOS = "Linux"

	// RequiredArch is the only supported machine.
	RequiredArch = "x86_64"

	// RequiredFlag is the instruction-set baseline of the build.
	RequiredFlag = "avx"

	// AVX512Flag triggers a warning: the hardware could do more than this
	// build will use.
	AVX512Flag = "avx512f"
)

// ISAFlags are the flags worth showing when explaining a decision.
var ISAFlags = []string{"avx", "avx2", "fma", "f16c", "avx512f", "avx512_bf16", "avx512_vnni", "amx_bf16"}

// Check returns a fatal ExitUnsupportedPlatform error when the host cannot
// run the build, and otherwise the list of non-fatal warnings.
func Check(info *HostInfo) ([]string, error) {
	if info.OS != RequiredOS {
		return nil, model.NewCLIError(model.ExitUnsupportedPlatform,
			fmt.Sprintf("unsupported operating system %q (%s required)", info.OS, RequiredOS))
	}
	if info.Arch != RequiredArch {
		return nil, model.NewCLIError(model.ExitUnsupportedPlatform,
			fmt.Sprintf("unsupported architecture %q (%s required)", info.Arch, RequiredArch))
	}
	if !info.Has(RequiredFlag) {
		return nil, model.NewCLIError(model.ExitUnsupportedPlatform,
			fmt.Sprintf("CPU does not report the %q flag (source: %s)", RequiredFlag, info.FlagSource))
	}

	var warnings []string
	if info.Has(AVX512Flag) {
		warnings = append(warnings,
			"CPU supports AVX-512; this build keeps AVX-512, AVX512-BF16 and AVX512-VNNI paths disabled")
	}
	if info.AVXStateChecked && !info.OSEnabledAVX {
		warnings = append(warnings,
			"CPU lists avx but the OS has not enabled AVX register state; the build may crash at runtime")
	}
	return warnings, nil
}

// Summary lists which of ISAFlags are present, e.g. "avx avx2 fma".
func Summary(info *HostInfo) string {
	var present []string
	for _, f := range ISAFlags {
		if info.Has(f) {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return "none detected"
	}
	return strings.Join(present, " ")
}

// ISA reports presence of each of ISAFlags.
func ISA(info *HostInfo) map[string]bool {
	out := make(map[string]bool, len(ISAFlags))
	for _, f := range ISAFlags {
		out[f] = info.Has(f)
	}
	return out
}
