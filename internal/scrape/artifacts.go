package scrape

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/CidQueiroz/Caca-Preco/internal/canonical"
)

// ArtifactStore writes the raw HTML of failed extractions to disk so the
// selector registry can be maintained against real pages. Dumping is a
// diagnostic side effect: failures here are logged and swallowed.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore returns a store rooted at dir. An empty dir disables
// dumping entirely.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

func (a *ArtifactStore) Dump(strategy, url string, body []byte) {
	if a == nil || a.dir == "" || len(body) == 0 {
		return
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		log.WithError(err).Warn("artifact dir unavailable")
		return
	}
	name := fmt.Sprintf("%s_%s_%s.html",
		time.Now().Format("20060102T150405"), strategy, canonical.Hash(url)[:8])
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		log.WithError(err).WithField("path", path).Warn("failed to write debug artifact")
		return
	}
	log.WithFields(log.Fields{"url": url, "strategy": strategy, "path": path}).
		Info("extraction failure artifact saved")
}
