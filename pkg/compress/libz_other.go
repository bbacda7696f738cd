//go:build !(darwin || linux)

package compress

// LoadLibZ falls back to compress/zlib where shared objects cannot be loaded.
func LoadLibZ(...string) Capability {
	return Zlib()
}
