package assets

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paylivhq/payliv-backend/pkg/config"
	"github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
	"github.com/paylivhq/payliv-backend/pkg/signing"
)

// Download is one customer-facing reference to an unlocked file. The URL is
// signed and expires; the storage path itself never leaves the service.
type Download struct {
	ProductName string    `json:"product_name"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service resolves unlocked digital assets into signed download references.
type Service struct {
	repo    Repository
	signer  *signing.Signer
	baseURL string
	logg    *logger.Logger
}

func NewService(repo Repository, signer *signing.Signer, cfg config.AssetsConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("asset repository is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{
		repo:    repo,
		signer:  signer,
		baseURL: strings.TrimRight(cfg.DownloadBaseURL, "/"),
		logg:    logg,
	}, nil
}

// ListForCustomer returns signed downloads for the order. The caller must
// present the exact email used at checkout; a mismatch reads as not found so
// the endpoint leaks nothing about which orders exist.
func (s *Service) ListForCustomer(ctx context.Context, orderID uuid.UUID, email string) ([]Download, error) {
	if orderID == uuid.Nil || email == "" {
		return nil, errors.New(errors.CodeValidation, "order id and email are required")
	}

	unlocked, err := s.repo.ListByOrderAndEmail(ctx, orderID, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("listing unlocked assets: %w", err)
	}
	if len(unlocked) == 0 {
		return nil, errors.New(errors.CodeNotFound, "no downloads for this order and email")
	}

	downloads := make([]Download, 0, len(unlocked))
	for _, asset := range unlocked {
		token, expiresAt, err := s.signer.Sign(asset.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("signing download for asset %s: %w", asset.ID, err)
		}
		downloads = append(downloads, Download{
			ProductName: asset.ProductName,
			URL:         fmt.Sprintf("%s/%s?token=%s", s.baseURL, asset.StoragePath, token),
			ExpiresAt:   expiresAt,
		})
	}
	return downloads, nil
}

// AuthorizeDownload checks the token presented for a storage path. The file
// gateway calls this as an auth subrequest before streaming the file.
func (s *Service) AuthorizeDownload(path, token string) error {
	if path == "" || token == "" {
		return errors.New(errors.CodeValidation, "path and token are required")
	}
	if err := s.signer.Verify(path, token); err != nil {
		if stdErrors.Is(err, signing.ErrTokenExpired) {
			return errors.New(errors.CodeUnauthorized, "download link expired")
		}
		return errors.New(errors.CodeUnauthorized, "download link invalid")
	}
	return nil
}
