// Package hint prints runtime tuning suggestions after installation.
//
// CPU inference runs noticeably faster with tcmalloc as the allocator and
// Intel's OpenMP runtime preloaded. Neither is required, so a missing
// library only changes the printed advice.
package hint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SearchDirs are the system library directories searched, in order.
var SearchDirs = []string{
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib64",
	"/usr/lib",
	"/usr/local/lib",
}

// TCMallocNames are accepted tcmalloc sonames, preferred first.
var TCMallocNames = []string{"libtcmalloc_minimal.so.4", "libtcmalloc.so.4"}

// IOMPName is the Intel OpenMP runtime.
const IOMPName = "libiomp5.so"

// Libraries holds the paths found for each preload candidate.
// Empty means not found.
type Libraries struct {
	TCMalloc string `json:"tcmalloc,omitempty"`
	IOMP     string `json:"iomp,omitempty"`
}

// Complete reports whether both libraries were found.
func (l Libraries) Complete() bool {
	return l.TCMalloc != "" && l.IOMP != ""
}

// Missing names the libraries that were not found.
func (l Libraries) Missing() []string {
	var missing []string
	if l.TCMalloc == "" {
		missing = append(missing, TCMallocNames[0])
	}
	if l.IOMP == "" {
		missing = append(missing, IOMPName)
	}
	return missing
}

// Finder locates preload libraries.
type Finder struct {
	// Dirs defaults to SearchDirs.
	Dirs []string

	// VenvDir, when set, adds <venv>/lib to the search. pip's
	// intel-openmp package installs libiomp5.so there.
	VenvDir string
}

// Find searches every directory for each library and keeps the first hit.
func (f *Finder) Find() Libraries {
	dirs := f.Dirs
	if dirs == nil {
		dirs = SearchDirs
	}
	if f.VenvDir != "" {
		dirs = append(append([]string{}, dirs...), filepath.Join(f.VenvDir, "lib"))
	}

	var libs Libraries
	for _, name := range TCMallocNames {
		if p := firstIn(dirs, name); p != "" {
			libs.TCMalloc = p
			break
		}
	}
	libs.IOMP = firstIn(dirs, IOMPName)
	return libs
}

func firstIn(dirs []string, name string) string {
	for _, d := range dirs {
		p := filepath.Join(d, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// PreloadLine returns the export line for complete libraries, or "".
func PreloadLine(libs Libraries) string {
	if !libs.Complete() {
		return ""
	}
	return fmt.Sprintf(`export LD_PRELOAD="%s:%s${LD_PRELOAD:+:$LD_PRELOAD}"`, libs.TCMalloc, libs.IOMP)
}

// ThreadsBindLine suggests binding OpenMP threads to cores 0..n-1.
// Returns "" for a single CPU where binding gains nothing.
func ThreadsBindLine(logicalCPUs int) string {
	if logicalCPUs < 2 {
		return ""
	}
	return fmt.Sprintf("export VLLM_CPU_OMP_THREADS_BIND=0-%d", logicalCPUs-1)
}

// Render writes the hint block.
func Render(w io.Writer, libs Libraries, logicalCPUs int) {
	fmt.Fprintln(w, "Runtime tuning:")
	if line := PreloadLine(libs); line != "" {
		fmt.Fprintln(w, "  "+line)
	} else {
		fmt.Fprintf(w, "  Preload libraries not found (missing: %s).\n", strings.Join(libs.Missing(), ", "))
		fmt.Fprintln(w, "  Install tcmalloc (libtcmalloc-minimal4) and Intel OpenMP (pip install intel-openmp),")
		fmt.Fprintln(w, "  then set LD_PRELOAD manually to both library paths.")
	}
	if line := ThreadsBindLine(logicalCPUs); line != "" {
		fmt.Fprintln(w, "  "+line)
	}
}
