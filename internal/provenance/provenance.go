// Package provenance records which mutator build a campaign ran against.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
)

// Info identifies the mutator binary and, when it lives inside a git
// worktree, the commit it was built from.
type Info struct {
	Executable string `json:"executable" yaml:"executable"`
	SHA256     string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	ModTime    string `json:"modTime,omitempty" yaml:"modTime,omitempty"`
	Repo       string `json:"repo,omitempty" yaml:"repo,omitempty"`
	Commit     string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Branch     string `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// Lookup hashes the executable and resolves the HEAD of the enclosing git
// repository. A missing repository is not an error.
func Lookup(executable string) (*Info, error) {
	abs, err := filepath.Abs(executable)
	if err != nil {
		return nil, err
	}
	info := &Info{Executable: abs}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	info.ModTime = st.ModTime().UTC().Format(time.RFC3339)
	sum, err := fileSHA256(abs)
	if err != nil {
		return nil, err
	}
	info.SHA256 = sum

	repo, err := git.PlainOpenWithOptions(filepath.Dir(abs), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return info, nil
		}
		return info, fmt.Errorf("open repository: %w", err)
	}
	if wt, err := repo.Worktree(); err == nil {
		info.Repo = wt.Filesystem.Root()
	}
	head, err := repo.Head()
	if err != nil {
		// unborn HEAD: repository without commits
		return info, nil
	}
	info.Commit = head.Hash().String()
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, nil
}

func fileSHA256(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
