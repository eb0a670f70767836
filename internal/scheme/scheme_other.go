//go:build !windows

package scheme

func register(Registration) error { return ErrUnsupported }

func unregister(string) error { return ErrUnsupported }

func lookup(string) (string, error) { return "", ErrUnsupported }
