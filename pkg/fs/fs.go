// Package fs maps guest filesystem paths into a host directory tree. The
// emulated MINIX filesystem lives under a single host root directory;
// absolute guest paths resolve against that root and relative guest paths
// resolve against the guest working directory.
package fs

import (
	"os"
	"path"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/eschaton/MINIXCompat/pkg/logflags"
)

// DefaultRoot is the host directory used for the guest filesystem when none
// is configured.
const DefaultRoot = "/opt/minix"

// RootEnvVar overrides the guest filesystem root when set in the host
// environment.
const RootEnvVar = "MINIXCOMPAT_DIR"

const pathCacheSize = 128

// Translator maps guest paths to host paths.
type Translator struct {
	root string
	wd   string

	cache *lru.Cache

	log *logrus.Entry
}

// NewTranslator returns a Translator rooted at root. An empty root selects
// the RootEnvVar override or, failing that, DefaultRoot. The guest working
// directory starts at /.
func NewTranslator(root string) *Translator {
	if root == "" {
		root = os.Getenv(RootEnvVar)
	}
	if root == "" {
		root = DefaultRoot
	}
	cache, _ := lru.New(pathCacheSize)
	return &Translator{
		root:  root,
		wd:    "/",
		cache: cache,
		log:   logflags.FSLogger(),
	}
}

// Root returns the host directory the guest filesystem is rooted at.
func (t *Translator) Root() string {
	return t.root
}

// WorkingDirectory returns the guest working directory.
func (t *Translator) WorkingDirectory() string {
	return t.wd
}

// SetWorkingDirectory sets the guest working directory. Relative paths are
// resolved against the current working directory first.
func (t *Translator) SetWorkingDirectory(wd string) {
	if !path.IsAbs(wd) {
		wd = path.Join(t.wd, wd)
	}
	t.wd = path.Clean(wd)
	t.cache.Purge()

	t.log.Debugf("chdir %s", t.wd)
}

// HostPath returns the host path for the given guest path. Guest paths
// never escape the root: ".." components are resolved guest-side before the
// root is prepended.
func (t *Translator) HostPath(guestPath string) string {
	if hp, ok := t.cache.Get(guestPath); ok {
		return hp.(string)
	}

	gp := guestPath
	if !path.IsAbs(gp) {
		gp = path.Join(t.wd, gp)
	}
	hp := path.Join(t.root, path.Clean(gp))

	t.cache.Add(guestPath, hp)

	t.log.Debugf("%s -> %s", guestPath, hp)

	return hp
}
