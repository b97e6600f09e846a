package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Cloudinary keeps report artifacts in a Cloudinary folder and references
// them by secure URL.
type Cloudinary struct {
	client *cloudinary.Cloudinary
	folder string
	http   *http.Client
	logger zerolog.Logger
}

// NewCloudinary constructs a Cloudinary-backed artifact store.
func NewCloudinary(cfg CloudinaryConfig, logger zerolog.Logger) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Cloudinary{
		client: cld,
		folder: cfg.Folder,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "artifact_storage").Logger(),
	}, nil
}

// Save uploads the artifact as a raw asset and returns its secure URL.
func (c *Cloudinary) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       strings.Trim(c.folder, "/"),
		PublicID:     buildPublicID(name),
		ResourceType: "raw",
	}

	result, err := c.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	c.logger.Info().Str("public_id", result.PublicID).Msg("artifact stored")

	return result.SecureURL, nil
}

// Exists issues a HEAD request against the artifact's secure URL.
func (c *Cloudinary) Exists(ctx context.Context, ref string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ref, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build artifact request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to check artifact: %w", err)
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// Open streams the artifact back from its secure URL.
func (c *Cloudinary) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build artifact request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("artifact fetch returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("report-%d", time.Now().Unix())
	}

	return fmt.Sprintf("%s-%d%s", base, time.Now().Unix(), filepath.Ext(name))
}
