package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

var ErrDriveFileNotFound = errors.New("drive file not found")

// Google-native files have no bytes of their own and must be exported.
var driveExportTypes = map[string]struct {
	mime string
	ext  string
}{
	"application/vnd.google-apps.document":     {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
	"application/vnd.google-apps.presentation": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", ".pptx"},
	"application/vnd.google-apps.spreadsheet":  {"text/csv", ".csv"},
}

type DriveConfig struct {
	// AccessToken is a user OAuth token; empty falls back to service credentials.
	AccessToken string
	MaxBytes    int64
	Timeout     time.Duration
}

func DriveConfigFromEnv(log *logger.Logger) DriveConfig {
	return DriveConfig{
		AccessToken: envutil.String("DRIVE_OAUTH_TOKEN", "", nil),
		MaxBytes:    int64(envutil.Int("DRIVE_MAX_BYTES", 100<<20, log)),
		Timeout:     envutil.Seconds("DRIVE_TIMEOUT_SECONDS", 2*time.Minute),
	}
}

type DriveFile struct {
	Name     string
	MimeType string
	Data     []byte
}

type Drive struct {
	log      *logger.Logger
	svc      *drive.Service
	maxBytes int64
	timeout  time.Duration
}

func NewDrive(ctx context.Context, log *logger.Logger, cfg DriveConfig, extra ...option.ClientOption) (*Drive, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}
	if tok := strings.TrimSpace(cfg.AccessToken); tok != "" {
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"})))
	} else {
		opts = append(opts, ClientOptionsFromEnv()...)
	}
	opts = append(opts, extra...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 100 << 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Drive{log: log.With("service", "Drive"), svc: svc, maxBytes: cfg.MaxBytes, timeout: cfg.Timeout}, nil
}

// Download fetches a file's bytes, exporting Google-native documents to an
// office format the extractor understands.
func (d *Drive) Download(ctx context.Context, fileID string) (*DriveFile, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	meta, err := d.svc.Files.Get(fileID).Fields("id", "name", "mimeType", "size").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, driveErr(fileID, err)
	}

	out := &DriveFile{Name: meta.Name, MimeType: meta.MimeType}
	var resp *http.Response
	if exp, ok := driveExportTypes[meta.MimeType]; ok {
		resp, err = d.svc.Files.Export(fileID, exp.mime).Context(ctx).Download()
		out.MimeType = exp.mime
		if !strings.HasSuffix(strings.ToLower(out.Name), exp.ext) {
			out.Name += exp.ext
		}
	} else {
		if meta.Size > d.maxBytes {
			return nil, fmt.Errorf("drive file %s is %d bytes, limit %d", fileID, meta.Size, d.maxBytes)
		}
		resp, err = d.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return nil, driveErr(fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read drive file %s: %w", fileID, err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("drive file %s exceeds %d bytes", fileID, d.maxBytes)
	}
	out.Data = data
	d.log.Debug("drive file downloaded", "file_id", fileID, "bytes", len(data), "mime_type", out.MimeType)
	return out, nil
}

func driveErr(fileID string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrDriveFileNotFound, fileID)
	}
	return fmt.Errorf("drive file %s: %w", fileID, err)
}
