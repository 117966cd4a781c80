package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/voshond/mwsync/internal/filesys"
	"github.com/voshond/mwsync/internal/log"
)

func (i *Installer) aliasMarker() string {
	return fmt.Sprintf("# %s alias", i.cfg.Name)
}

// aliasBlock launches the bundle detached from the shell so closing the
// terminal doesn't kill it.
func (i *Installer) aliasBlock() string {
	return fmt.Sprintf(`

%s
function %s() {
    "%s" --no-sandbox "$@" > /dev/null 2>&1 & disown
}
`, i.aliasMarker(), i.cfg.Name, i.paths.AppImage)
}

// addAlias appends the alias block to the shell rc unless it is already
// there. A missing rc file is created.
func (i *Installer) addAlias() error {
	mode := os.FileMode(0o644)
	var current []byte
	if raw, err := i.fs.ReadFile(i.paths.Zshrc); err == nil {
		if strings.Contains(string(raw), i.aliasMarker()) {
			return nil
		}
		current = raw
		if info, serr := i.fs.Stat(i.paths.Zshrc); serr == nil {
			mode = info.Mode().Perm()
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", i.paths.Zshrc, err)
	}

	updated := append(current, []byte(i.aliasBlock())...)
	if err := filesys.AtomicWrite(i.fs, i.paths.Zshrc, updated, mode); err != nil {
		return fmt.Errorf("updating %s: %w", i.paths.Zshrc, err)
	}
	log.Infof("alias added to %s (reopen shell)", i.paths.Zshrc)
	return nil
}

// removeAlias strips the alias block: from the marker line through the
// closing brace of the shell function. Everything else is left untouched.
func (i *Installer) removeAlias() error {
	raw, err := i.fs.ReadFile(i.paths.Zshrc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", i.paths.Zshrc, err)
	}

	mode := os.FileMode(0o644)
	if info, serr := i.fs.Stat(i.paths.Zshrc); serr == nil {
		mode = info.Mode().Perm()
	}

	var kept []string
	skip := false
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == i.aliasMarker() {
			skip = true
			continue
		}
		if skip {
			if strings.HasPrefix(line, "}") {
				skip = false
			}
			continue
		}
		kept = append(kept, line)
	}

	updated := strings.Join(kept, "\n")
	if err := filesys.AtomicWrite(i.fs, i.paths.Zshrc, []byte(updated), mode); err != nil {
		return fmt.Errorf("updating %s: %w", i.paths.Zshrc, err)
	}
	return nil
}
