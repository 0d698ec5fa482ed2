// Package stock implements the portfolio endpoints.
package stock

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"finpulse/internal/api"
	"finpulse/internal/common/auth"
	"finpulse/internal/common/errors"
	"finpulse/internal/jobs"
	"finpulse/internal/models"
	"finpulse/internal/storage"
)

// AddStock adds a symbol to the caller's tracked portfolio. The symbol is
// confirmed against market data in Validate, which stays read-only: a bad
// symbol never touches storage.
type AddStock struct {
	store  storage.ItemStore
	market jobs.MarketData
}

func NewAddStock(store storage.ItemStore, market jobs.MarketData) *AddStock {
	return &AddStock{store: store, market: market}
}

func (h *AddStock) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:               "AddStock",
		RequiredBodyFields: []string{"symbol", "quantity"},
		RequiresAuth:       true,
		ExpectedKinds:      []errors.Kind{errors.KindValidationFailure, errors.KindConflict},
	}
}

func (h *AddStock) Validate(ctx context.Context, req *api.Request) error {
	body, err := req.BodyMap()
	if err != nil {
		return err
	}

	quantity, ok := body["quantity"].(float64)
	if !ok || quantity <= 0 {
		return errors.NewValidationFailure("quantity", "must be a positive number")
	}

	symbol := normalizeSymbol(req.BodyString("symbol"))
	if symbol == "" {
		return errors.NewValidationFailure("symbol", "must not be empty")
	}
	if _, err := h.market.Quote(ctx, symbol); err != nil {
		return errors.NewValidationFailure("symbol", fmt.Sprintf("%s is not a known symbol", symbol))
	}
	return nil
}

func (h *AddStock) Execute(ctx context.Context, req *api.Request, claims *auth.Claims) (*api.Response, error) {
	body, err := req.BodyMap()
	if err != nil {
		return nil, err
	}
	symbol := normalizeSymbol(req.BodyString("symbol"))

	holding := models.Holding{
		Symbol:   symbol,
		Quantity: body["quantity"].(float64),
		AddedAt:  time.Now().UTC(),
	}

	created, err := h.store.PutIfAbsent(ctx, storage.TableStocks, storage.HoldingKey(claims.Email, symbol), holding)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, errors.NewConflict("Stock")
	}

	return api.Success("AddStock", "Stock added!", nil), nil
}

// GetStocks lists the caller's holdings.
type GetStocks struct {
	store storage.ItemStore
}

func NewGetStocks(store storage.ItemStore) *GetStocks {
	return &GetStocks{store: store}
}

func (h *GetStocks) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:         "GetStocks",
		RequiresAuth: true,
	}
}

func (h *GetStocks) Validate(context.Context, *api.Request) error { return nil }

func (h *GetStocks) Execute(ctx context.Context, _ *api.Request, claims *auth.Claims) (*api.Response, error) {
	rows, err := h.store.Query(ctx, storage.TableStocks, claims.Email+"#")
	if err != nil {
		return nil, err
	}

	holdings := make([]models.Holding, 0, len(rows))
	for _, raw := range rows {
		var holding models.Holding
		if err := json.Unmarshal(raw, &holding); err != nil {
			return nil, fmt.Errorf("failed to decode holding: %w", err)
		}
		holdings = append(holdings, holding)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })

	items := make([]interface{}, 0, len(holdings))
	for _, holding := range holdings {
		items = append(items, map[string]interface{}{
			"symbol":   holding.Symbol,
			"quantity": holding.Quantity,
			"addedAt":  holding.AddedAt.UTC().Format(time.RFC3339),
		})
	}

	return api.Success("GetStocks", "Stocks found!", map[string]interface{}{
		"stocks": items,
	}), nil
}

// DeleteStock removes one holding.
type DeleteStock struct {
	store storage.ItemStore
}

func NewDeleteStock(store storage.ItemStore) *DeleteStock {
	return &DeleteStock{store: store}
}

func (h *DeleteStock) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:               "DeleteStock",
		RequiredBodyFields: []string{"symbol"},
		RequiresAuth:       true,
		ExpectedKinds:      []errors.Kind{errors.KindNotFound},
	}
}

func (h *DeleteStock) Validate(context.Context, *api.Request) error { return nil }

func (h *DeleteStock) Execute(ctx context.Context, req *api.Request, claims *auth.Claims) (*api.Response, error) {
	symbol := normalizeSymbol(req.BodyString("symbol"))
	key := storage.HoldingKey(claims.Email, symbol)

	if _, err := h.store.Get(ctx, storage.TableStocks, key); err != nil {
		if stderrors.Is(err, storage.ErrItemNotFound) {
			return nil, errors.NewNotFound("Stock")
		}
		return nil, err
	}

	if err := h.store.Delete(ctx, storage.TableStocks, key); err != nil {
		return nil, err
	}

	return api.Success("DeleteStock", "Stock deleted!", nil), nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
