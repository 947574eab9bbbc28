package build

import (
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"
)

var (
	// MarketTestingDir is the directory that contains all of the files and
	// folders created during testing.
	MarketTestingDir = filepath.Join(os.TempDir(), "MarketTesting")
)

// TempDir joins the provided directories and prefixes them with the market
// testing directory, removing any stale contents from a previous run.
func TempDir(dirs ...string) string {
	path := filepath.Join(MarketTestingDir, filepath.Join(dirs...))
	os.RemoveAll(path)
	return path
}

// CopyFile copies a file from a source to a destination, used by tests that
// need a throwaway copy of a fixture file.
func CopyFile(source, dest string) error {
	sf, err := os.Open(source)
	if err != nil {
		return err
	}
	defer sf.Close()

	df, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer df.Close()

	_, err = io.Copy(df, sf)
	return err
}

// CopyDir copies a directory and all of its contents to the destination
// directory.
func CopyDir(source, dest string) error {
	stat, err := os.Stat(source)
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return errors.New("source is not a directory")
	}

	err = os.MkdirAll(dest, stat.Mode())
	if err != nil {
		return err
	}
	files, err := ioutil.ReadDir(source)
	if err != nil {
		return err
	}
	for _, file := range files {
		newSource := filepath.Join(source, file.Name())
		newDest := filepath.Join(dest, file.Name())
		if file.IsDir() {
			err = CopyDir(newSource, newDest)
		} else {
			err = CopyFile(newSource, newDest)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Retry will call 'fn' 'tries' times, waiting 'durationBetweenAttempts'
// between each attempt, returning 'nil' the first time that 'fn' returns nil.
// If 'nil' is never returned, then the final error returned by 'fn' is
// returned. Used to poll eventually-consistent state (DHT convergence,
// coordinator bootstrap) in integration tests.
func Retry(tries int, durationBetweenAttempts time.Duration, fn func() error) (err error) {
	for i := 1; i < tries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		time.Sleep(durationBetweenAttempts)
	}
	return fn()
}
