// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"mlprep/internal/common"
)

// AbaloneHeader is the header row of the abalone CSV.
const AbaloneHeader = "Sex,Length,Diameter,Height,Whole_weight,Shucked_weight,Viscera_weight,Shell_weight,Rings"

// AbaloneCSV returns a header plus n distinct abalone rows. Length grows
// with the row index so it identifies a row.
func AbaloneCSV(n int) string {
	var b strings.Builder
	b.WriteString(AbaloneHeader + "\n")
	sexes := []string{"M", "F", "I"}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s,%.4f,%.3f,%.3f,%.4f,%.4f,%.4f,%.3f,%d\n",
			sexes[i%3],
			0.1+float64(i)/10000,
			0.08+float64(i%97)/1000,
			0.02+float64(i%31)/1000,
			0.5+float64(i%211)/1000,
			0.2+float64(i%53)/1000,
			0.1+float64(i%37)/1000,
			0.15+float64(i%41)/1000,
			1+i%29)
	}
	return b.String()
}

// WriteAbaloneCSV writes AbaloneCSV(n) to abalone.csv in a fresh temporary
// directory and returns its path.
func WriteAbaloneCSV(t testing.TB, n int) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), "abalone.csv", AbaloneCSV(n))
}

// WriteFile writes content to name under dir.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), common.FilePermissionSecure); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// MemKeyring is an in-memory keyring. A non-nil Err fails every call.
type MemKeyring struct {
	Secrets map[string]string
	Err     error
}

func (k *MemKeyring) Get(service, user string) (string, error) {
	if k.Err != nil {
		return "", k.Err
	}
	s, ok := k.Secrets[service+":"+user]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return s, nil
}

func (k *MemKeyring) Set(service, user, secret string) error {
	if k.Err != nil {
		return k.Err
	}
	if k.Secrets == nil {
		k.Secrets = map[string]string{}
	}
	k.Secrets[service+":"+user] = secret
	return nil
}
