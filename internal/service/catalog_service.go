package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/tabkeeper/internal/ledger"
	"github.com/mmynk/tabkeeper/pkg/api"
)

var _ api.CatalogServiceHandler = (*CatalogService)(nil)

// CatalogService implements the CatalogService RPC interface.
type CatalogService struct {
	book   *ledger.Book
	debug  bool
	logger *slog.Logger
}

func NewCatalogService(book *ledger.Book, debug bool, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{book: book, debug: debug, logger: logger}
}

func (s *CatalogService) CreateItem(ctx context.Context, req *connect.Request[api.CreateItemRequest]) (*connect.Response[api.CreateItemResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.book.CreateItem(ctx, userID, ledger.NewItem{
		Name:        req.Msg.Name,
		Description: req.Msg.Description,
		Price:       req.Msg.Price,
	})
	if err != nil {
		return nil, toConnectError(err, s.debug)
	}

	s.logger.Info("Item created", "user_id", userID, "item_id", item.ID)
	return connect.NewResponse(&api.CreateItemResponse{Item: toAPIItem(item)}), nil
}

func (s *CatalogService) ListItems(ctx context.Context, req *connect.Request[api.ListItemsRequest]) (*connect.Response[api.ListItemsResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.book.ListItems(ctx, userID)
	if err != nil {
		return nil, toConnectError(err, s.debug)
	}

	out := make([]*api.Item, 0, len(items))
	for _, item := range items {
		out = append(out, toAPIItem(item))
	}
	return connect.NewResponse(&api.ListItemsResponse{Items: out}), nil
}

// DeleteItem removes a catalog item. Transactions that were prefilled from
// it keep their copied name and price.
func (s *CatalogService) DeleteItem(ctx context.Context, req *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.book.DeleteItem(ctx, userID, req.Msg.ID); err != nil {
		return nil, toConnectError(err, s.debug)
	}

	s.logger.Info("Item deleted", "user_id", userID, "item_id", req.Msg.ID)
	return connect.NewResponse(&api.DeleteItemResponse{}), nil
}
