package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/mrcl/maprot/internal/journal"
	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/remote"
	"github.com/mrcl/maprot/internal/rotation"
	"github.com/mrcl/maprot/internal/servercfg"
	"github.com/mrcl/maprot/internal/workspace"
)

const stateDirName = ".maprot"

// resolve joins p onto root unless p is empty or absolute.
func resolve(root, p, def string) string {
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func currentLayout() workspace.Layout {
	root := workDir
	if root == "" {
		root = "."
	}
	return workspace.Layout{
		MapsDir:     resolve(root, mapsDir, workspace.DefaultMapsDir),
		EntsDir:     resolve(root, entsDir, workspace.DefaultEntsDir),
		ModifiedDir: resolve(root, modifiedDir, workspace.DefaultModifiedDir),
		OutputDir:   resolve(root, outputDir, "."),
	}
}

func stateFile() string {
	return resolve(workDir, statePath, filepath.Join(stateDirName, "state.db"))
}

func journalFile() string {
	return resolve(workDir, journalPath, filepath.Join(stateDirName, "journal.db"))
}

func bundleDir() string {
	return resolve(workDir, cfg.BundleDir, "bundles")
}

func currentSettings() servercfg.Settings {
	return cfg.Server.Merge(servercfg.DefaultSettings())
}

// currentRemote overlays the remote flags that were set on the config file's
// remote section.
func currentRemote(c *cli.Command) remote.Config {
	rc := cfg.Remote
	if c.IsSet("host") {
		rc.Host = remoteHost
	}
	if c.IsSet("port") {
		rc.Port = remotePort
	}
	if c.IsSet("user") {
		rc.User = remoteUser
	}
	if c.IsSet("password") {
		rc.Password = remotePassword
	}
	if c.IsSet("key-file") {
		rc.KeyFile = remoteKeyFile
	}
	if c.IsSet("base-path") {
		rc.BasePath = remoteBase
	}
	return rc
}

func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func openStore() (*rotation.Store, error) {
	path := stateFile()
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	return rotation.OpenStore(path)
}

func loadRotation() (*rotation.Rotation, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(rotationName)
}

func openJournal() (*journal.Journal, error) {
	path := journalFile()
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	return journal.Open(path)
}

// recorder writes one journal run. A journal that cannot be opened is logged
// and ignored so the command itself still runs.
type recorder struct {
	j  *journal.Journal
	id string
}

func startRun(ctx context.Context, kind, detail string) *recorder {
	log := logger.FromContext(ctx)
	j, err := openJournal()
	if err != nil {
		log.Warn("run history unavailable", "path", journalFile(), "error", err)
		return &recorder{}
	}
	id, err := j.Begin(ctx, kind, detail)
	if err != nil {
		log.Warn("run history unavailable", "error", err)
		_ = j.Close()
		return &recorder{}
	}
	return &recorder{j: j, id: id}
}

func (r *recorder) item(ctx context.Context, subject string, err error) {
	if r.j == nil {
		return
	}
	if jerr := r.j.Item(ctx, r.id, subject, err); jerr != nil {
		logger.FromContext(ctx).Warn("record run item", "run", r.id, "error", jerr)
	}
}

func (r *recorder) finish(ctx context.Context, fatal error) {
	if r.j == nil {
		return
	}
	if err := r.j.Finish(ctx, r.id, fatal); err != nil {
		logger.FromContext(ctx).Warn("finish run", "run", r.id, "error", err)
	}
	_ = r.j.Close()
}

func exitf(format string, args ...any) error {
	return cli.Exit(fmt.Sprintf("error: "+format, args...), 1)
}
