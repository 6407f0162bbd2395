package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/adrg/xdg"
)

// ErrUnknownPathName is returned by Resolve for names outside Names().
var ErrUnknownPathName = errors.New("unknown path name")

// Resolver maps symbolic directory names to absolute platform paths.
type Resolver struct {
	appID   string
	dataDir string
	goos    string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDataDir pins the appData directory, bypassing platform resolution.
func WithDataDir(dir string) Option {
	return func(r *Resolver) { r.dataDir = dir }
}

// WithGOOS overrides the platform used for the few names that differ
// between operating systems.
func WithGOOS(goos string) Option {
	return func(r *Resolver) { r.goos = goos }
}

func NewResolver(appID string, opts ...Option) *Resolver {
	r := &Resolver{appID: appID, goos: runtime.GOOS}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var resolvers = map[string]func(r *Resolver) (string, error){
	"appData":   (*Resolver).AppDataDir,
	"appConfig": func(r *Resolver) (string, error) { return r.appDir(xdg.ConfigHome) },
	"appCache":  func(r *Resolver) (string, error) { return r.appDir(xdg.CacheHome) },
	"appLog":    (*Resolver).appLogDir,
	"desktop":   func(*Resolver) (string, error) { return nonEmpty("desktop", xdg.UserDirs.Desktop) },
	"documents": func(*Resolver) (string, error) { return nonEmpty("documents", xdg.UserDirs.Documents) },
	"downloads": func(*Resolver) (string, error) { return nonEmpty("downloads", xdg.UserDirs.Download) },
	"home":      func(*Resolver) (string, error) { return os.UserHomeDir() },
	"music":     func(*Resolver) (string, error) { return nonEmpty("music", xdg.UserDirs.Music) },
	"pictures":  func(*Resolver) (string, error) { return nonEmpty("pictures", xdg.UserDirs.Pictures) },
	"public":    func(*Resolver) (string, error) { return nonEmpty("public", xdg.UserDirs.PublicShare) },
	"temp":      func(*Resolver) (string, error) { return os.TempDir(), nil },
	"videos":    func(*Resolver) (string, error) { return nonEmpty("videos", xdg.UserDirs.Videos) },
}

// Names lists the recognised symbolic names in sorted order.
func Names() []string {
	names := make([]string, 0, len(resolvers))
	for name := range resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the absolute path for a symbolic directory name.
func (r *Resolver) Resolve(name string) (string, error) {
	resolve, ok := resolvers[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPathName, name)
	}
	path, err := resolve(r)
	if err != nil {
		return "", fmt.Errorf("could not get path %s: %w", name, err)
	}
	return path, nil
}

// AppDataDir returns the per-application private data directory. It is not
// created here.
func (r *Resolver) AppDataDir() (string, error) {
	if r.dataDir != "" {
		return filepath.Abs(r.dataDir)
	}
	return r.appDir(xdg.DataHome)
}

func (r *Resolver) appLogDir() (string, error) {
	if r.goos == "darwin" {
		return r.appDir(filepath.Join(xdg.Home, "Library", "Logs"))
	}
	data, err := r.AppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(data, "logs"), nil
}

func (r *Resolver) appDir(base string) (string, error) {
	if r.appID == "" {
		return "", errors.New("application identifier is not set")
	}
	if base == "" {
		return "", errors.New("platform directory is not available")
	}
	return filepath.Join(base, r.appID), nil
}

func nonEmpty(name, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%s directory is not available", name)
	}
	return path, nil
}
