// Package env loads dotenv files into the process environment.
package env

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EnvDotenvPath names an explicit dotenv file; it skips the directory search.
const EnvDotenvPath = "DROIDPROBE_DOTENV"

// dotenvNames are tried in each directory, most specific first.
var dotenvNames = []string{".droidprobe.env", ".env"}

var (
	loadOnce   sync.Once
	loadedPath string
	loadErr    error
)

// Ensure loads one dotenv file: $DROIDPROBE_DOTENV when set, otherwise the
// first match walking up from the working directory. Variables already in the
// environment win. Subsequent calls are no-ops.
func Ensure() error {
	// Keep unit tests hermetic unless GOTEST_LOAD_DOTENV=1.
	if runningUnderGoTest() && os.Getenv("GOTEST_LOAD_DOTENV") != "1" {
		return nil
	}
	loadOnce.Do(func() {
		path := strings.TrimSpace(os.Getenv(EnvDotenvPath))
		if path == "" {
			wd, err := os.Getwd()
			if err != nil {
				loadErr = errors.Wrap(err, "env: get working directory")
				return
			}
			path, loadErr = Find(wd)
			if loadErr != nil {
				log.Debug().Err(loadErr).Msg("env: search dotenv failed")
				return
			}
		}
		if path == "" {
			return
		}
		if err := Load(path); err != nil {
			loadErr = err
			log.Warn().Err(err).Str("dotenv", path).Msg("env: load dotenv failed")
			return
		}
		loadedPath = path
		log.Debug().Str("dotenv", path).Msg("env: loaded dotenv")
	})
	return loadErr
}

// Load applies path without overriding variables that are already set.
func Load(path string) error {
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "env: load %s", path)
	}
	return nil
}

// LoadedPath returns the dotenv path Ensure loaded, or "".
func LoadedPath() string {
	return loadedPath
}

// Find walks from dir up to the filesystem root and returns the first dotenv
// file, or "" when there is none.
func Find(dir string) (string, error) {
	for {
		for _, name := range dotenvNames {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, nil
			}
			if err != nil && !os.IsNotExist(err) {
				return "", errors.Wrapf(err, "env: stat %s", candidate)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func runningUnderGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}
