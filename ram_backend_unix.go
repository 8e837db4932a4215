//go:build unix

// ram_backend_unix.go - mmap-backed RAM allocation (Linux/BSD/Darwin)
//
// Mirrors the build-tag split the teacher uses for liblhasa
// (lhasa_linux.go vs lhasa_headless.go): a platform-specific backend
// file, selected at compile time, with a portable fallback in
// ram_backend_portable.go for everything else.
//
// Every RAM (the low region and the XMS pool) is backed by an anonymous
// private mmap rather than a Go slice. The mapping is private to this
// process and is not shared with any other process.

package main

import "golang.org/x/sys/unix"

// ramBackend allocates size bytes via an anonymous private mmap and
// returns a release func that munmaps it.
func ramBackend(size int) ([]byte, func()) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		// Fall back to a plain slice rather than fail construction; an
		// emulator core should not refuse to boot because mmap is
		// unavailable in a constrained sandbox.
		return make([]byte, size), func() {}
	}
	return mem, func() {
		_ = unix.Munmap(mem)
	}
}
