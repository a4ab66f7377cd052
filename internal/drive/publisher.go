package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/muj89/usdt-p2p-moniter/internal/logging"
)

// Publisher ships local files to Google Drive under a service
// account. Credentials are the raw service-account JSON; the caller
// owns loading them from the environment.
type Publisher struct {
	svc           *drive.Service
	defaultFolder string
	now           func() time.Time
}

// UploadResult identifies the remote copy.
type UploadResult struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ViewLink string `json:"view_link"`
}

// NewPublisher builds the Drive service once, so a misconfigured
// deployment fails at startup rather than on the first upload.
func NewPublisher(ctx context.Context, credsJSON, defaultFolder string) (*Publisher, error) {
	if strings.TrimSpace(credsJSON) == "" {
		return nil, fmt.Errorf("drive: credentials JSON is required")
	}
	svc, err := drive.NewService(ctx,
		option.WithCredentialsJSON([]byte(credsJSON)),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive: build service: %w", err)
	}
	return &Publisher{
		svc:           svc,
		defaultFolder: defaultFolder,
		now:           time.Now,
	}, nil
}

// Publish uploads the file at path under a timestamp-suffixed name.
// folderID overrides the default destination folder; empty means the
// configured default, and no default uploads to the Drive root.
func (p *Publisher) Publish(ctx context.Context, path, folderID string) (*UploadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("refusing to upload empty file %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	meta := &drive.File{Name: remoteName(path, p.now())}
	if folderID == "" {
		folderID = p.defaultFolder
	}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	created, err := p.svc.Files.Create(meta).
		Media(f, googleapi.ContentType("application/json")).
		Fields("id", "name", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}

	logging.Infof("[drive] uploaded %s (id=%s)", created.Name, created.Id)
	return &UploadResult{
		ID:       created.Id,
		Name:     created.Name,
		ViewLink: created.WebViewLink,
	}, nil
}

func remoteName(path string, now time.Time) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%s%s", stem, now.Format("20060102_150405"), ext)
}
