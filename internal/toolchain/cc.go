package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// gcc-compatible drivers only, everything here relies on -c and -MM
var (
	commonCCompilers   = []string{"gcc", "clang", "cc", "icx", "icc", "tcc"}
	commonCxxCompilers = []string{"g++", "clang++", "c++", "icpx", "icpc", "gcc", "clang"}
)

// FindCompiler attempts to find a suitable C or C++ compiler on the system
func FindCompiler(needCxx bool) string {
	cc := os.Getenv("CC")
	cxx := os.Getenv("CXX")

	if needCxx && cxx != "" {
		return cxx
	}
	if !needCxx && cc != "" {
		return cc
	}

	var compilersToTry []string
	if needCxx {
		compilersToTry = commonCxxCompilers
	} else {
		compilersToTry = commonCCompilers
	}

	for _, compiler := range compilersToTry {
		if _, err := exec.LookPath(compiler); err == nil {
			return compiler
		}
	}

	// let the first invocation report a missing compiler
	if needCxx {
		return "g++"
	}
	return "gcc"
}

// IsCxx reports whether a source file should be compiled as C++
func IsCxx(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cpp", ".cc", ".cxx", ".c++":
		return true
	}
	return false
}
