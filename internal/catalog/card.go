// Package catalog отображает категории каталога в виде карточек.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmeshcher/livreur-console/internal/model"
)

// DefaultIcon показывается, если у категории нет своей иконки.
const DefaultIcon = "📦"

// Card описывает карточку категории.
type Card struct {
	Href         string `json:"href"`
	Title        string `json:"title"`
	Image        string `json:"image,omitempty"`
	Icon         string `json:"icon"`
	ProductCount int    `json:"productCount"`
	CountLabel   string `json:"countLabel"`
	Description  string `json:"description,omitempty"`
}

// NewCard строит карточку по категории, подставляя значения по умолчанию
// для отсутствующих полей.
func NewCard(c model.Category) Card {
	icon := c.Icon
	if icon == "" {
		icon = DefaultIcon
	}

	count := 0
	if c.ProductCount != nil {
		count = *c.ProductCount
	}

	ref := c.Slug
	if ref == "" {
		ref = c.ID
	}

	return Card{
		Href:         "/categories/" + url.PathEscape(ref),
		Title:        c.Name,
		Image:        c.Image,
		Icon:         icon,
		ProductCount: count,
		CountLabel:   countLabel(count),
		Description:  c.Description,
	}
}

// NewCards строит карточки для списка категорий.
func NewCards(categories []model.Category) []Card {
	cards := make([]Card, 0, len(categories))
	for _, c := range categories {
		cards = append(cards, NewCard(c))
	}
	return cards
}

func countLabel(n int) string {
	if n == 1 {
		return "1 produit"
	}
	return fmt.Sprintf("%d produits", n)
}

// Doer выполняет запрос к API; реализуется livreur.Client.
type Doer interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

// Client загружает категории каталога.
type Client struct {
	api Doer
}

// NewClient создаёт клиент каталога.
func NewClient(api Doer) *Client {
	return &Client{api: api}
}

// GetCategories возвращает категории каталога.
func (c *Client) GetCategories(ctx context.Context) ([]model.Category, error) {
	var resp struct {
		Categories []model.Category `json:"categories"`
	}
	if err := c.api.Do(ctx, http.MethodGet, "/categories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}
