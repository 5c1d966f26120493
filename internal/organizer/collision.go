package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// collisionAttempts bounds the numeric-suffix search before giving up.
const collisionAttempts = 10000

func pathFree(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// resolveCollision returns a destination path inside dir that does not exist
// yet. The first candidate is the filename itself; collisions get an
// incrementing numeric suffix before the extension: name_1.ext, name_2.ext.
// Filenames are NFC-normalized first so the same name in two Unicode
// encodings lands on the same slot instead of silently coexisting.
func resolveCollision(dir, filename string) (string, error) {
	filename = norm.NFC.String(filename)
	candidate := filepath.Join(dir, filename)
	free, err := pathFree(candidate)
	if err != nil {
		return "", err
	}
	if free {
		return candidate, nil
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	for n := 1; n <= collisionAttempts; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, ext))
		free, err := pathFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", moveError(CollisionUnresolved, filepath.Join(dir, filename), nil)
}
