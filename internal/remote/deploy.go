package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/servercfg"
)

// Upload is the outcome of copying one local file.
type Upload struct {
	Local  string `json:"local"`
	Remote string `json:"remote"`
	Bytes  int64  `json:"bytes"`
	Err    error  `json:"-"`
}

// DeployReport lists every attempted upload in order.
type DeployReport struct {
	Created []string `json:"created,omitempty"`
	Uploads []Upload `json:"uploads"`
}

// Failed counts the uploads that did not complete.
func (r *DeployReport) Failed() int {
	n := 0
	for _, u := range r.Uploads {
		if u.Err != nil {
			n++
		}
	}
	return n
}

// DeployPlan names the local sources and remote destinations of a deploy.
type DeployPlan struct {
	// OutputDir holds maplist.txt and server.cfg.
	OutputDir string
	// ModifiedDir holds the rewritten entity artifacts.
	ModifiedDir string
	BasePath    string
	EntsDir     string
}

// Deploy copies maplist.txt and server.cfg into plan.BasePath and every file
// of plan.ModifiedDir into plan.BasePath/plan.EntsDir, creating remote
// directories as needed. A failed upload is recorded and the rest continue;
// only a directory that cannot be created aborts the deploy.
func Deploy(ctx context.Context, fsys FS, plan DeployPlan) (*DeployReport, error) {
	if plan.BasePath == "" {
		return nil, errors.New("remote: base path not configured")
	}
	if plan.EntsDir == "" {
		plan.EntsDir = DefaultEntsDir
	}
	log := logger.FromContext(ctx)
	report := &DeployReport{}

	created, err := ensureDir(fsys, plan.BasePath)
	if err != nil {
		return report, err
	}
	if created {
		log.Info("created remote directory", "path", plan.BasePath)
		report.Created = append(report.Created, plan.BasePath)
	}

	for _, name := range []string{servercfg.MaplistFile, servercfg.ConfigFile} {
		report.Uploads = append(report.Uploads,
			upload(ctx, fsys, filepath.Join(plan.OutputDir, name), path.Join(plan.BasePath, name)))
	}

	entsDir := path.Join(plan.BasePath, plan.EntsDir)
	created, err = ensureDir(fsys, entsDir)
	if err != nil {
		return report, err
	}
	if created {
		log.Info("created remote directory", "path", entsDir)
		report.Created = append(report.Created, entsDir)
	}

	files, err := localFiles(plan.ModifiedDir)
	if err != nil {
		return report, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Uploads = append(report.Uploads,
			upload(ctx, fsys, f, path.Join(entsDir, filepath.Base(f))))
	}
	return report, nil
}

// Push copies one local file into remoteDir, keeping its base name.
func Push(ctx context.Context, fsys FS, local, remoteDir string) (Upload, error) {
	if _, err := ensureDir(fsys, remoteDir); err != nil {
		return Upload{Local: local}, err
	}
	u := upload(ctx, fsys, local, path.Join(remoteDir, filepath.Base(local)))
	return u, u.Err
}

func ensureDir(fsys FS, dir string) (bool, error) {
	st, err := fsys.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		return false, nil
	case err == nil:
		return false, fmt.Errorf("remote: %s exists and is not a directory", dir)
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("remote: stat %s: %w", dir, err)
	}
	if err := fsys.MkdirAll(dir); err != nil {
		return false, fmt.Errorf("remote: mkdir %s: %w", dir, err)
	}
	return true, nil
}

func upload(ctx context.Context, fsys FS, local, remote string) Upload {
	u := Upload{Local: local, Remote: remote}
	u.Bytes, u.Err = copyFile(fsys, local, remote)
	log := logger.FromContext(ctx)
	if u.Err != nil {
		log.Warn("upload failed", "local", local, "remote", remote, "err", u.Err)
	} else {
		log.Info("uploaded", "remote", remote, "bytes", u.Bytes)
	}
	return u
}

func copyFile(fsys FS, local, remote string) (int64, error) {
	src, err := os.Open(local)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := fsys.Create(remote)
	if err != nil {
		return 0, fmt.Errorf("remote: create %s: %w", remote, err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("remote: write %s: %w", remote, err)
	}
	return n, nil
}

func localFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
