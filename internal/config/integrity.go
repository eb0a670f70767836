package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// LockedFiles lists the files `runapp registry lock` records in .checksums.
var LockedFiles = []string{RegistryFileName}

// VerifyRegistry checks the registry file against the .checksums manifest in
// its directory. It returns (false, nil) when no manifest exists, meaning
// integrity checking is not enabled. Any other failure is a hard error.
func VerifyRegistry(registryPath string) (bool, error) {
	dir := filepath.Dir(registryPath)
	manifest, err := LoadChecksums(dir)
	if err != nil {
		if errors.Is(err, ErrNoChecksums) {
			return false, nil
		}
		return true, err
	}

	name := filepath.Base(registryPath)
	expectedHash, ok := manifest.Hashes[name]
	if !ok {
		return true, fmt.Errorf("%s has no hash in %s\n"+
			"Run: runapp registry lock", name, filepath.Join(dir, ChecksumsFileName))
	}

	if err := VerifyFileHash(registryPath, expectedHash); err != nil {
		return true, fmt.Errorf("registry verification failed: %w\n"+
			"If you edited %s intentionally, run: runapp registry lock", err, name)
	}
	return true, nil
}
