package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/beanvault/beanvault"
	"github.com/beanvault/beanvault/internal/domain"
)

// ShopRepository defines persistence for roaster shops.
type ShopRepository interface {
	List(ctx context.Context) ([]domain.Shop, error)
	Get(ctx context.Context, id string) (domain.Shop, error)
	Create(ctx context.Context, shop domain.Shop) (domain.Shop, error)
	Update(ctx context.Context, shop domain.Shop) (domain.Shop, error)
	Delete(ctx context.Context, id string) error
}

type ShopUsecase struct {
	repo ShopRepository
	gate AuthGate
}

func NewShopUsecase(repo ShopRepository, gate AuthGate) *ShopUsecase {
	return &ShopUsecase{repo: repo, gate: gate}
}

func (uc *ShopUsecase) List(ctx context.Context) ([]domain.Shop, error) {
	return uc.repo.List(ctx)
}

func (uc *ShopUsecase) Get(ctx context.Context, id string) (domain.Shop, error) {
	return uc.repo.Get(ctx, id)
}

// Create registers a shop, normalizing its URL and deriving a favicon logo
// when none was supplied.
func (uc *ShopUsecase) Create(ctx context.Context, shop domain.Shop) (domain.Shop, error) {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.Shop{}, domain.ErrUnauthorized
	}

	shop.Name = strings.TrimSpace(shop.Name)
	if shop.Name == "" {
		return domain.Shop{}, fmt.Errorf("shop name is required")
	}

	if shop.URL != "" {
		normalized, err := beanvault.NormalizeShopURL(shop.URL)
		if err != nil {
			return domain.Shop{}, err
		}
		shop.URL = normalized
		if shop.LogoURL == "" {
			shop.LogoURL = faviconURL(shop.URL)
		}
	}

	return uc.repo.Create(ctx, shop)
}

func (uc *ShopUsecase) Update(ctx context.Context, shop domain.Shop) (domain.Shop, error) {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.Shop{}, domain.ErrUnauthorized
	}

	if shop.URL != "" {
		normalized, err := beanvault.NormalizeShopURL(shop.URL)
		if err != nil {
			return domain.Shop{}, err
		}
		shop.URL = normalized
	}

	return uc.repo.Update(ctx, shop)
}

func (uc *ShopUsecase) Delete(ctx context.Context, id string) error {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.ErrUnauthorized
	}
	return uc.repo.Delete(ctx, id)
}

func faviconURL(shopURL string) string {
	domainName := beanvault.ExtractDomain(shopURL)
	if domainName == "" {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=64", domainName)
}
