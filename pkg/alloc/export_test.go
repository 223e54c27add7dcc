package alloc

// SetExit replaces the process exit used by the fatal handlers and returns
// a function restoring it.
func SetExit(fn func(int)) (restore func()) {
	prev := exit
	exit = fn
	return func() { exit = prev }
}
