package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/daminals/orcanet-go/build"
)

type testStruct struct {
	One   string
	Two   uint64
	Three []byte
}

// TestSaveLoadJSON creates a simple object and then tries saving and loading
// it, including a burst of concurrent saves.
func TestSaveLoadJSON(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	dir := filepath.Join(build.TempDir(persistDir), t.Name())
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}

	testMeta := Metadata{"Test Struct", "v1.2.1"}
	obj1 := testStruct{"dog", 25, []byte("more dog")}
	obj1Filename := filepath.Join(dir, "obj1.json")
	if err := SaveJSON(testMeta, obj1, obj1Filename); err != nil {
		t.Fatal(err)
	}

	var obj2 testStruct
	if err := LoadJSON(testMeta, &obj2, obj1Filename); err != nil {
		t.Fatal(err)
	}
	assertEqualTestStruct(t, obj1, obj2)

	// Loading the temp file path directly should fail.
	if err := LoadJSON(testMeta, &obj2, obj1Filename+tempSuffix); err != ErrBadFilenameSuffix {
		t.Error("did not get bad filename suffix")
	}

	// Saving concurrently from many goroutines should never corrupt the
	// file beyond recovery.
	var wg sync.WaitGroup
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = SaveJSON(testMeta, obj1, obj1Filename)
		}()
	}
	wg.Wait()

	if err := LoadJSON(testMeta, &obj2, obj1Filename); err != nil {
		t.Fatal(err)
	}
	assertEqualTestStruct(t, obj1, obj2)
}

// TestLoadJSONRecoversFromCorruptMain checks that LoadJSON falls back to the
// temp file when the main file is corrupted.
func TestLoadJSONRecoversFromCorruptMain(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	dir := filepath.Join(build.TempDir(persistDir), t.Name())
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}

	testMeta := Metadata{"Test Struct", "v1.2.1"}
	obj1 := testStruct{"cat", 7, []byte("meow")}
	filename := filepath.Join(dir, "obj.json")

	if err := SaveJSON(testMeta, obj1, filename); err != nil {
		t.Fatal(err)
	}
	// A good save renames its temp file over the main file, so none is left
	// behind; recreate it explicitly and then corrupt only the main file.
	if err := os.WriteFile(filename+tempSuffix, mustReadFile(t, filename), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filename, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	var obj2 testStruct
	if err := LoadJSON(testMeta, &obj2, filename); err != nil {
		t.Fatal(err)
	}
	assertEqualTestStruct(t, obj1, obj2)
}

// TestLoadJSONWrongHeader checks that a mismatched header is rejected even
// though the checksum is valid.
func TestLoadJSONWrongHeader(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	dir := filepath.Join(build.TempDir(persistDir), t.Name())
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(dir, "obj.json")
	if err := SaveJSON(Metadata{"A", "v1"}, testStruct{One: "x"}, filename); err != nil {
		t.Fatal(err)
	}
	var obj testStruct
	if err := LoadJSON(Metadata{"B", "v1"}, &obj, filename); err == nil {
		t.Error("expected header mismatch to be rejected")
	}
}

func mustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func assertEqualTestStruct(t *testing.T, want, got testStruct) {
	t.Helper()
	if got.One != want.One || got.Two != want.Two || !bytes.Equal(got.Three, want.Three) {
		t.Errorf("persist mismatch: got %+v, want %+v", got, want)
	}
}
