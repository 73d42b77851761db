package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/logger"
	"marketplace/internal/repo"
)

type CreateClientRequest struct {
	Name                string `json:"name" binding:"required,max=255"`
	LogoURL             string `json:"logo_url" binding:"omitempty,url,max=500"`
	ThemeColorPrimary   string `json:"theme_color_primary" binding:"omitempty,hexcolor,len=7"`
	ThemeColorSecondary string `json:"theme_color_secondary" binding:"omitempty,hexcolor,len=7"`
	TimeToDelivery      string `json:"time_to_delivery" binding:"max=255"`
	Address             string `json:"address"`
	Phone               string `json:"phone" binding:"max=50"`
	Email               string `json:"email" binding:"omitempty,email,max=255"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type CreateProductRequest struct {
	Description string          `json:"description" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ImageURL    string          `json:"image_url" binding:"omitempty,url,max=500"`
	CategoryID  *uuid.UUID      `json:"category_id"`
}

type CatalogService interface {
	CreateClient(ctx context.Context, req CreateClientRequest) (*domain.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	CreateCategory(ctx context.Context, clientID uuid.UUID, req CreateCategoryRequest) (*domain.Category, error)
	ListCategories(ctx context.Context, clientID uuid.UUID) ([]domain.Category, error)
	CreateProduct(ctx context.Context, clientID uuid.UUID, req CreateProductRequest) (*domain.Product, error)
	ListProducts(ctx context.Context, clientID uuid.UUID) ([]domain.Product, error)
}

type catalogService struct {
	tx          Transactor
	catalogRepo repo.CatalogRepo
	log         *logrus.Entry
	now         func() time.Time
}

func NewCatalogService(tx Transactor, catalogRepo repo.CatalogRepo, log logrus.FieldLogger) CatalogService {
	return &catalogService{
		tx:          tx,
		catalogRepo: catalogRepo,
		log:         logger.Component(log, "catalog"),
		now:         time.Now,
	}
}

func (s *catalogService) CreateClient(ctx context.Context, req CreateClientRequest) (*domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Validation("name", "is required")
	}
	if err := checkText("name", name); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	client := &domain.Client{
		ID:                  uuid.New(),
		Name:                name,
		LogoURL:             req.LogoURL,
		ThemeColorPrimary:   req.ThemeColorPrimary,
		ThemeColorSecondary: req.ThemeColorSecondary,
		TimeToDelivery:      req.TimeToDelivery,
		Address:             req.Address,
		Phone:               req.Phone,
		Email:               req.Email,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.catalogRepo.CreateClient(ctx, tx, client)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("client_id", client.ID).Info("client created")
	return client, nil
}

func (s *catalogService) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	client, err := s.catalogRepo.FindClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.NotFound("client", id)
	}
	return client, nil
}

func (s *catalogService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.catalogRepo.ListClients(ctx)
}

func (s *catalogService) CreateCategory(ctx context.Context, clientID uuid.UUID, req CreateCategoryRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Validation("name", "is required")
	}
	if err := checkText("name", name); err != nil {
		return nil, err
	}
	if _, err := s.GetClient(ctx, clientID); err != nil {
		return nil, err
	}

	category := &domain.Category{ID: uuid.New(), Name: name, ClientID: clientID}
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.catalogRepo.CreateCategory(ctx, tx, category)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"client_id": clientID, "category_id": category.ID}).Info("category created")
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context, clientID uuid.UUID) ([]domain.Category, error) {
	if _, err := s.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.catalogRepo.ListCategories(ctx, clientID)
}

func (s *catalogService) CreateProduct(ctx context.Context, clientID uuid.UUID, req CreateProductRequest) (*domain.Product, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, domain.Validation("description", "is required")
	}
	if req.UnitPrice.IsNegative() {
		return nil, domain.Validation("unit_price", "must not be negative")
	}
	if err := checkMoney("unit_price", req.UnitPrice); err != nil {
		return nil, err
	}
	if _, err := s.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		category, err := s.catalogRepo.FindCategory(ctx, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, domain.NotFound("category", *req.CategoryID)
		}
		if category.ClientID != clientID {
			return nil, domain.Validation("category_id", "belongs to a different storefront")
		}
	}

	product := &domain.Product{
		ID:          uuid.New(),
		Description: strings.TrimSpace(req.Description),
		UnitPrice:   req.UnitPrice,
		ImageURL:    req.ImageURL,
		ClientID:    clientID,
		CategoryID:  req.CategoryID,
	}
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.catalogRepo.CreateProduct(ctx, tx, product)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"client_id": clientID, "product_id": product.ID}).Info("product created")
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, clientID uuid.UUID) ([]domain.Product, error) {
	if _, err := s.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.catalogRepo.ListProducts(ctx, clientID)
}
