//go:build windows

package scheme

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

func register(r Registration) error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, r.KeyPath(), registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("create %s: %w", r.KeyPath(), err)
	}
	defer k.Close()

	if err := k.SetStringValue("", r.Description()); err != nil {
		return fmt.Errorf("set description: %w", err)
	}
	if err := k.SetStringValue("URL Protocol", ""); err != nil {
		return fmt.Errorf("set URL Protocol: %w", err)
	}

	cmd, _, err := registry.CreateKey(registry.CURRENT_USER, CommandKeyPath(r.Scheme), registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("create %s: %w", CommandKeyPath(r.Scheme), err)
	}
	defer cmd.Close()

	if err := cmd.SetStringValue("", r.Command()); err != nil {
		return fmt.Errorf("set open command: %w", err)
	}
	return nil
}

func unregister(scheme string) error {
	// DeleteKey only removes keys without subkeys, so walk leaf first.
	base := KeyPath(scheme)
	for _, path := range []string{
		base + `\shell\open\command`,
		base + `\shell\open`,
		base + `\shell`,
		base,
	} {
		if err := registry.DeleteKey(registry.CURRENT_USER, path); err != nil && !errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
	return nil
}

func lookup(scheme string) (string, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, CommandKeyPath(scheme), registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", ErrNotRegistered
		}
		return "", err
	}
	defer k.Close()

	value, _, err := k.GetStringValue("")
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", ErrNotRegistered
		}
		return "", err
	}
	return value, nil
}
