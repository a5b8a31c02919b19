// Package catalogue turns the provider's flat service listing into priced,
// grouped categories.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TagFacebook = "facebook"
	TagTikTok   = "tiktok"
	TagDefault  = "default"
)

const loadFailedMessage = "Failed to load services"

type Source interface {
	Services(ctx context.Context) ([]model.ApiService, error)
}

type Catalogue struct {
	Categories []model.Category `json:"categories"`
	LoadError  string           `json:"loadError,omitempty"`
}

// Build groups services by their exact category string. Categories and the
// services inside them keep the order in which they were first seen.
func Build(services []model.ApiService, pricing Pricing, logger *zap.SugaredLogger) *Catalogue {
	cat := &Catalogue{Categories: []model.Category{}}
	index := make(map[string]int)

	for _, svc := range services {
		rate, err := pricing.RatePer1000(svc.Rate)
		if err != nil {
			logger.Warnf("skip service %d (%s): %v", svc.ID, svc.Name, err)
			continue
		}

		i, ok := index[svc.Category]
		if !ok {
			cat.Categories = append(cat.Categories, model.Category{
				ID:   svc.Category,
				Name: svc.Category,
				Tag:  tagFor(svc.Category),
			})
			i = len(cat.Categories) - 1
			index[svc.Category] = i
		}

		cat.Categories[i].Services = append(cat.Categories[i].Services, model.Service{
			ID:          strconv.FormatInt(svc.ID, 10),
			Name:        svc.Name,
			RatePer1000: rate,
			Min:         svc.Min,
			Max:         svc.Max,
			Description: describe(svc, rate),
		})
	}

	return cat
}

// Load fetches the listing and builds the catalogue. Failures never escape:
// the result is an empty catalogue with LoadError set.
func Load(ctx context.Context, src Source, pricing Pricing, logger *zap.SugaredLogger) *Catalogue {
	services, err := src.Services(ctx)
	if err != nil {
		logger.Errorf("error fetching services: %v", err)

		msg := loadFailedMessage
		var perr *errs.ProviderError
		if errors.As(err, &perr) {
			msg = perr.Message
		}
		return &Catalogue{Categories: []model.Category{}, LoadError: msg}
	}

	return Build(services, pricing, logger)
}

func (c *Catalogue) Category(id string) (model.Category, bool) {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return model.Category{}, false
}

func (c *Catalogue) Service(categoryID, serviceID string) (model.Service, bool) {
	cat, ok := c.Category(categoryID)
	if !ok {
		return model.Service{}, false
	}
	for _, svc := range cat.Services {
		if svc.ID == serviceID {
			return svc, true
		}
	}
	return model.Service{}, false
}

// Default is the first category and its first service.
func (c *Catalogue) Default() (model.Category, model.Service, bool) {
	if len(c.Categories) == 0 || len(c.Categories[0].Services) == 0 {
		return model.Category{}, model.Service{}, false
	}
	return c.Categories[0], c.Categories[0].Services[0], true
}

func tagFor(category string) string {
	lower := strings.ToLower(category)
	switch {
	case strings.Contains(lower, "facebook"):
		return TagFacebook
	case strings.Contains(lower, "tiktok"):
		return TagTikTok
	default:
		return TagDefault
	}
}

func describe(svc model.ApiService, rate decimal.Decimal) []string {
	return []string{
		"Type: " + svc.Type,
		"Refill: " + yesNo(svc.Refill),
		"Cancel: " + yesNo(svc.Cancel),
		fmt.Sprintf("Rate: ৳%s per 1000", rate.StringFixed(2)),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
