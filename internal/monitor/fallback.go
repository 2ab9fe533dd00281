package monitor

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// FileFallbackLog appends extracted-but-unsaved results as JSON lines to a
// local file. Data that cost a browser session to obtain must not vanish
// just because the store write failed.
type FileFallbackLog struct {
	mu   sync.Mutex
	path string
}

func NewFileFallbackLog(path string) *FileFallbackLog {
	return &FileFallbackLog{path: path}
}

type fallbackEntry struct {
	Timestamp time.Time `json:"timestamp"`
	SellerID  int64     `json:"seller_id"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Error     string    `json:"error"`
}

func (f *FileFallbackLog) Append(sellerID int64, url, name string, price float64, cause error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	entry := fallbackEntry{
		Timestamp: time.Now().UTC(),
		SellerID:  sellerID,
		URL:       url,
		Name:      name,
		Price:     price,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return err
	}
	log.WithFields(log.Fields{"url": url, "path": f.path}).
		Warn("extraction saved to fallback log after store failure")
	return nil
}
