//go:build !(linux && (arm || arm64))

package hal

// openRPi is only available when building for the Raspberry Pi.
func openRPi(Config) (*Hardware, error) {
	return nil, ErrUnsupported
}
