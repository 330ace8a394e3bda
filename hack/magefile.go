//+build mage

package main

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/magefile/mage/sh"
)

// Build cross-compiles the launchpad binary for each
// (LAUNCHPAD_BUILD_PLATFORMS, LAUNCHPAD_BUILD_ARCHS) pair and writes a
// sha256 sum alongside each binary under release/.
func Build() error {
	platforms := []string{"linux", "windows", "darwin"}
	if v := os.Getenv("LAUNCHPAD_BUILD_PLATFORMS"); v != "" {
		platforms = strings.Split(v, " ")
	}

	arches := []string{"amd64", "arm64"}
	if v := os.Getenv("LAUNCHPAD_BUILD_ARCHS"); v != "" {
		arches = strings.Split(v, " ")
	}

	if err := os.MkdirAll("release", 0700); err != nil {
		return err
	}

	for _, platform := range platforms {
		for _, arch := range arches {
			name := fmt.Sprintf("launchpad-%s-%s", platform, arch)
			if platform == "windows" {
				name += ".exe"
			}
			name = filepath.Join("release", name)
			fmt.Printf("Building for %s/%s\n", platform, arch)
			env := map[string]string{
				"GOOS":        platform,
				"GOARCH":      arch,
				"CGO_ENABLED": "0",
			}
			err := sh.RunWith(env, "go", "build", "-a", "-installsuffix", "cgo", "-ldflags", flags(), "-o", name, "./cmd/launchpad/")
			if err != nil {
				return err
			}
			f, err := os.Open(name)
			if err != nil {
				return fmt.Errorf("can't open built file for hashing: %v", err)
			}
			defer f.Close()
			h := sha256.New()
			if _, err := io.Copy(h, f); err != nil {
				return fmt.Errorf("error hashing built file: %v", err)
			}
			if err := ioutil.WriteFile(name+".sha256", h.Sum(nil), 0600); err != nil {
				return err
			}
		}
	}
	return nil
}

// Coverage runs test coverage over all non-vendor subdirectories, writing
// to coverage.txt.
func Coverage() error {
	pkgs, err := pkgs()
	if err != nil {
		return err
	}
	cov, err := os.Create("coverage.txt")
	if err != nil {
		return err
	}
	defer cov.Close()
	for _, pkg := range pkgs {
		err := sh.Run("go", "test", "-race", "-coverprofile=profile.out", "-covermode=atomic", pkg)
		if err != nil {
			return err
		}
		prof, err := os.Open("profile.out")
		if err != nil {
			return err
		}
		defer prof.Close()
		if _, err := io.Copy(cov, prof); err != nil {
			return err
		}
		prof.Close()
		os.Remove("profile.out")
	}
	return nil
}

// Lint validates code with go vet and golint.
func Lint() error {
	pkgs, err := pkgs()
	if err != nil {
		return err
	}
	err = sh.Run("go", append([]string{"vet"}, pkgs...)...)
	if err != nil {
		return err
	}
	return sh.Run("golint", pkgs...)
}

// ChkFormat validates that every package is gofmt -s clean.
func ChkFormat() error {
	pkgs, err := pkgs()
	if err != nil {
		return err
	}
	tld := os.Getenv("REPO_TLD")
	if tld == "" {
		tld = "github.com/home-lang/pantry-sub000"
	}
	ignorePkgs := os.Getenv("IGNORE_PKGS")
	ignores := []string{".", "./gps", "./internal/gps"}
	if ignorePkgs != "" {
		ignores = strings.Split(ignorePkgs, string(os.PathListSeparator))
	}

	for _, pkg := range pkgs {
		rel := "." + strings.TrimPrefix(pkg, tld)
		if contains(ignores, rel) {
			continue
		}

		fmt.Println("Processing gofmt for:", pkg)
		s, err := sh.Output("gofmt", "-s", "-l", rel)
		if err != nil {
			return err
		}
		if s != "" {
			return fmt.Errorf("GO FMT FAILURE: %v", pkg)
		}
	}
	return nil
}

// ChkLicense checks every *.go file outside vendor/ for a copyright header.
func ChkLicense() error {
	copyright := []byte("copyright")

	failed := false
	ch := make(chan string, 1000)
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for file := range ch {
			wg.Add(1)
			go func(s string) {
				defer wg.Done()
				f, err := os.Open(s)
				if err != nil {
					failed = true
					fmt.Fprintf(os.Stderr, "%s: %v\n", s, err)
					return
				}
				defer f.Close()
				b, err := ioutil.ReadAll(io.LimitReader(f, 100))
				if err != nil {
					failed = true
					fmt.Fprintf(os.Stderr, "%s: %v\n", s, err)
					return
				}
				if !bytes.Contains(bytes.ToLower(b), copyright) {
					failed = true
					fmt.Println(s)
				}
			}(file)
		}
		wg.Wait()
		close(done)
	}()

	_ = filepath.Walk(".", func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s error: %v\n", path, err)
			return nil
		}
		if fi.IsDir() {
			if fi.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(fi.Name(), ".go") {
			return nil
		}
		ch <- path
		return nil
	})
	close(ch)
	<-done
	if failed {
		return errors.New("failed license check")
	}
	return nil
}

// flags returns the ldflags value that sets the cmd/launchpad binary's
// cmd.Version var to the git tag. It also passes main.commitHash and
// main.buildDate, which cmd/launchpad's main package does not declare, so
// the linker sets nothing for them.
func flags() string {
	timestamp := time.Now().Format("2006-01-02")
	hash := hash()
	tag := tag()
	if tag == "" {
		tag = "dev"
	}
	return fmt.Sprintf(`-s -w -X "github.com/home-lang/pantry-sub000/cmd/launchpad/internal/cmd.Version=%s" -X "main.commitHash=%s" -X "main.buildDate=%s"`, tag, hash, timestamp)
}

// tag returns the git tag for the current branch or "" if none.
func tag() string {
	s, _ := sh.Output("git", "describe", "--tags", "--dirty")
	return s
}

// hash returns the git hash for the current repo or "" if none.
func hash() string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return hash
}

func pkgs() ([]string, error) {
	s, err := sh.Output("go", "list", "./...")
	if err != nil {
		return nil, err
	}
	pkgs := strings.Split(s, "\n")
	novendor := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		if strings.Contains(pkg, "/vendor/") {
			continue
		}
		novendor = append(novendor, pkg)
	}
	return novendor, nil
}

func contains(vals []string, val string) bool {
	for _, v := range vals {
		if val == v {
			return true
		}
	}
	return false
}
