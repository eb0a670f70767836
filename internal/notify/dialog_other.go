//go:build !windows

package notify

func nativeDialog() (Notifier, bool) {
	return nil, false
}
