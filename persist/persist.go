// Package persist implements atomic, checksummed JSON persistence for the
// marketplace daemon's on-disk state: the wallet's key file, the JSON
// configuration (registered files, prices, bootstrap peers, listen address,
// private-key path), and any other object that must survive a crash between
// writes.
package persist

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/NebulousLabs/errors"
)

const (
	// persistDir is the subdirectory under the build testing dir used by
	// this package's own tests.
	persistDir = "persist"

	// tempSuffix is appended to a filename to produce the path of the
	// temporary file that SaveJSON writes to before renaming it into place.
	tempSuffix = "_temp"
)

var (
	// ErrBadFilenameSuffix is returned when LoadJSON is asked to load a file
	// that already carries the temp-file suffix; only SaveJSON is allowed to
	// operate on temp files directly.
	ErrBadFilenameSuffix = errors.New("persist: filename carries the temp file suffix")

	// ErrBadHeader is returned when the persisted object's header does not
	// match the header the caller expected.
	ErrBadHeader = errors.New("persist: mismatched header")

	// ErrBadVersion is returned when the persisted object's version does not
	// match the version the caller expected.
	ErrBadVersion = errors.New("persist: mismatched version")

	// ErrBadChecksum is returned when neither the main file nor its temp
	// fallback has a checksum consistent with its data.
	ErrBadChecksum = errors.New("persist: checksum mismatch")
)

// Metadata identifies the type and version of a persisted object, and is
// checked on load so that stale or unrelated files are not silently accepted.
type Metadata struct {
	Header  string
	Version string
}

// persistData is the on-disk envelope written by SaveJSON. Checksum is the
// SHA-256 digest (hex-encoded) of the marshalled Data field; it lets LoadJSON
// detect a torn write (process killed mid-write) and fall back to the
// previous temp file instead of returning corrupted data.
type persistData struct {
	Header   string
	Version  string
	Checksum string
	Data     json.RawMessage
}

// fileLocks serializes concurrent SaveJSON calls against the same filename,
// since two goroutines racing to write the same temp file could otherwise
// interleave their writes before the rename.
var (
	fileLocksMu sync.Mutex
	fileLocks   = make(map[string]*sync.Mutex)
)

func lockFor(filename string) *sync.Mutex {
	fileLocksMu.Lock()
	defer fileLocksMu.Unlock()
	l, ok := fileLocks[filename]
	if !ok {
		l = new(sync.Mutex)
		fileLocks[filename] = l
	}
	return l
}

func checksum(data json.RawMessage) string {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err == nil {
		data = compact.Bytes()
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SaveJSON saves a JSON-encoded object to filename, with atomic
// replace-on-rename semantics: the new data is written to filename+"_temp"
// and fsync'd, then renamed over filename. A process that is killed between
// the two steps leaves either the old file or the new one intact, never a
// half-written one.
func SaveJSON(meta Metadata, object interface{}, filename string) error {
	if strings.HasSuffix(filename, tempSuffix) {
		return ErrBadFilenameSuffix
	}

	lock := lockFor(filename)
	lock.Lock()
	defer lock.Unlock()

	data, err := json.Marshal(object)
	if err != nil {
		return errors.Extend(err, errors.New("persist: could not marshal object"))
	}
	pd := persistData{
		Header:   meta.Header,
		Version:  meta.Version,
		Checksum: checksum(data),
		Data:     data,
	}
	encoded, err := json.MarshalIndent(pd, "", "\t")
	if err != nil {
		return errors.Extend(err, errors.New("persist: could not marshal envelope"))
	}

	tempFilename := filename + tempSuffix
	f, err := os.OpenFile(tempFilename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(encoded); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tempFilename, filename)
}

// LoadJSON loads a JSON-encoded object from filename, verifying that its
// header, version, and checksum all match. If the main file is missing or
// corrupted, LoadJSON falls back to filename+"_temp" (a save that died
// between writing the temp file and renaming it over the main file).
func LoadJSON(meta Metadata, object interface{}, filename string) error {
	if strings.HasSuffix(filename, tempSuffix) {
		return ErrBadFilenameSuffix
	}

	mainErr := loadJSONFile(meta, object, filename)
	if mainErr == nil {
		return nil
	}
	tempErr := loadJSONFile(meta, object, filename+tempSuffix)
	if tempErr == nil {
		return nil
	}
	return errors.Compose(mainErr, tempErr)
}

func loadJSONFile(meta Metadata, object interface{}, filename string) error {
	raw, err := ioutil.ReadFile(filepath.Clean(filename))
	if err != nil {
		return err
	}
	var pd persistData
	if err := json.Unmarshal(raw, &pd); err != nil {
		return err
	}
	if pd.Header != meta.Header {
		return ErrBadHeader
	}
	if pd.Version != meta.Version {
		return ErrBadVersion
	}
	if pd.Checksum != checksum(pd.Data) {
		return ErrBadChecksum
	}
	return json.Unmarshal(pd.Data, object)
}
