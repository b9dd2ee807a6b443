//go:build windows

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

type registryStore struct{}

func root(h Hive) registry.Key {
	if h == LocalMachine {
		return registry.LOCAL_MACHINE
	}
	return registry.CURRENT_USER
}

func (registryStore) SetDWord(k Key, name string, value uint32) error {
	key, _, err := registry.CreateKey(root(k.Hive), k.Path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening %s: %w", k, err)
	}
	defer key.Close()

	if err := key.SetDWordValue(name, value); err != nil {
		return fmt.Errorf("setting %s\\%s: %w", k, name, err)
	}
	return nil
}

func (registryStore) SetString(k Key, name, value string) error {
	key, _, err := registry.CreateKey(root(k.Hive), k.Path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening %s: %w", k, err)
	}
	defer key.Close()

	if err := key.SetStringValue(name, value); err != nil {
		return fmt.Errorf("setting %s\\%s: %w", k, name, err)
	}
	return nil
}

func (registryStore) DWord(k Key, name string) (uint32, bool, error) {
	key, err := registry.OpenKey(root(k.Hive), k.Path, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("opening %s: %w", k, err)
	}
	defer key.Close()

	v, _, err := key.GetIntegerValue(name)
	if errors.Is(err, registry.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading %s\\%s: %w", k, name, err)
	}
	return uint32(v), true, nil
}

func (registryStore) SubKeys(k Key) ([]string, error) {
	key, err := registry.OpenKey(root(k.Hive), k.Path, registry.ENUMERATE_SUB_KEYS)
	if errors.Is(err, registry.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", k, err)
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", k, err)
	}
	return names, nil
}
