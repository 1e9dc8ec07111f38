package assets

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/config"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
	"github.com/paylivhq/payliv-backend/pkg/signing"
)

type stubRepo struct {
	assets     []models.DigitalAsset
	queriedFor string
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Insert(ctx context.Context, asset *models.DigitalAsset) error { return nil }

func (s *stubRepo) ListByOrderAndEmail(ctx context.Context, orderID uuid.UUID, email string) ([]models.DigitalAsset, error) {
	s.queriedFor = email
	return s.assets, nil
}

func newTestService(t *testing.T, repo *stubRepo) *Service {
	t.Helper()
	signer, err := signing.New("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	svc, err := NewService(repo, signer, config.AssetsConfig{DownloadBaseURL: "https://files.payliv.test/"}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func TestListForCustomerSignsDownloads(t *testing.T) {
	repo := &stubRepo{assets: []models.DigitalAsset{{
		ID:          uuid.New(),
		ProductName: "E-book",
		StoragePath: "assets/ebook-v2.pdf",
	}}}
	svc := newTestService(t, repo)

	downloads, err := svc.ListForCustomer(context.Background(), uuid.New(), "  Awa@Example.COM ")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.queriedFor != "awa@example.com" {
		t.Fatalf("expected normalized email lookup, got %q", repo.queriedFor)
	}
	if len(downloads) != 1 {
		t.Fatalf("expected one download, got %d", len(downloads))
	}
	d := downloads[0]
	if d.ProductName != "E-book" {
		t.Fatalf("unexpected product name %q", d.ProductName)
	}
	if !strings.HasPrefix(d.URL, "https://files.payliv.test/assets/ebook-v2.pdf?token=") {
		t.Fatalf("unexpected url %q", d.URL)
	}
	if !d.ExpiresAt.After(time.Now()) {
		t.Fatal("expected a future expiry")
	}
}

func TestListForCustomerUnknownReadsAsNotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{})

	_, err := svc.ListForCustomer(context.Background(), uuid.New(), "nobody@example.com")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListForCustomerRequiresEmail(t *testing.T) {
	svc := newTestService(t, &stubRepo{})

	_, err := svc.ListForCustomer(context.Background(), uuid.New(), "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthorizeDownloadAcceptsIssuedToken(t *testing.T) {
	repo := &stubRepo{assets: []models.DigitalAsset{{
		ID:          uuid.New(),
		ProductName: "E-book",
		StoragePath: "assets/ebook-v2.pdf",
	}}}
	svc := newTestService(t, repo)

	downloads, err := svc.ListForCustomer(context.Background(), uuid.New(), "awa@example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	token := strings.TrimPrefix(downloads[0].URL, "https://files.payliv.test/assets/ebook-v2.pdf?token=")

	if err := svc.AuthorizeDownload("assets/ebook-v2.pdf", token); err != nil {
		t.Fatalf("issued token must authorize its path, got %v", err)
	}
	if err := svc.AuthorizeDownload("assets/other.pdf", token); err == nil {
		t.Fatal("token must not authorize another path")
	}
}

func TestAuthorizeDownloadRejectsGarbage(t *testing.T) {
	svc := newTestService(t, &stubRepo{})

	err := svc.AuthorizeDownload("assets/ebook-v2.pdf", "not-a-token")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	err = svc.AuthorizeDownload("", "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
