package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// CatalogServiceName is the fully-qualified name of the CatalogService.
const CatalogServiceName = "tabkeeper.v1.CatalogService"

// Procedure paths, used for routing and in interceptors.
const (
	CatalogServiceCreateItemProcedure = "/tabkeeper.v1.CatalogService/CreateItem"
	CatalogServiceListItemsProcedure  = "/tabkeeper.v1.CatalogService/ListItems"
	CatalogServiceDeleteItemProcedure = "/tabkeeper.v1.CatalogService/DeleteItem"
)

// CatalogServiceHandler is the server side of the CatalogService.
type CatalogServiceHandler interface {
	CreateItem(context.Context, *connect.Request[CreateItemRequest]) (*connect.Response[CreateItemResponse], error)
	ListItems(context.Context, *connect.Request[ListItemsRequest]) (*connect.Response[ListItemsResponse], error)
	DeleteItem(context.Context, *connect.Request[DeleteItemRequest]) (*connect.Response[DeleteItemResponse], error)
}

// NewCatalogServiceHandler builds an HTTP handler for svc. It returns the path
// prefix to mount the handler on.
func NewCatalogServiceHandler(svc CatalogServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	createItemHandler := connect.NewUnaryHandler(CatalogServiceCreateItemProcedure, svc.CreateItem, opts...)
	listItemsHandler := connect.NewUnaryHandler(CatalogServiceListItemsProcedure, svc.ListItems, opts...)
	deleteItemHandler := connect.NewUnaryHandler(CatalogServiceDeleteItemProcedure, svc.DeleteItem, opts...)
	return "/" + CatalogServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CatalogServiceCreateItemProcedure:
			createItemHandler.ServeHTTP(w, r)
		case CatalogServiceListItemsProcedure:
			listItemsHandler.ServeHTTP(w, r)
		case CatalogServiceDeleteItemProcedure:
			deleteItemHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// CatalogServiceClient is a client for the CatalogService.
type CatalogServiceClient interface {
	CreateItem(context.Context, *connect.Request[CreateItemRequest]) (*connect.Response[CreateItemResponse], error)
	ListItems(context.Context, *connect.Request[ListItemsRequest]) (*connect.Response[ListItemsResponse], error)
	DeleteItem(context.Context, *connect.Request[DeleteItemRequest]) (*connect.Response[DeleteItemResponse], error)
}

// NewCatalogServiceClient constructs a client for the CatalogService.
// baseURL is the server root, for example http://localhost:8080.
func NewCatalogServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) CatalogServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &catalogServiceClient{
		createItem: connect.NewClient[CreateItemRequest, CreateItemResponse](httpClient, baseURL+CatalogServiceCreateItemProcedure, opts...),
		listItems:  connect.NewClient[ListItemsRequest, ListItemsResponse](httpClient, baseURL+CatalogServiceListItemsProcedure, opts...),
		deleteItem: connect.NewClient[DeleteItemRequest, DeleteItemResponse](httpClient, baseURL+CatalogServiceDeleteItemProcedure, opts...),
	}
}

type catalogServiceClient struct {
	createItem *connect.Client[CreateItemRequest, CreateItemResponse]
	listItems  *connect.Client[ListItemsRequest, ListItemsResponse]
	deleteItem *connect.Client[DeleteItemRequest, DeleteItemResponse]
}

func (c *catalogServiceClient) CreateItem(ctx context.Context, req *connect.Request[CreateItemRequest]) (*connect.Response[CreateItemResponse], error) {
	return c.createItem.CallUnary(ctx, req)
}

func (c *catalogServiceClient) ListItems(ctx context.Context, req *connect.Request[ListItemsRequest]) (*connect.Response[ListItemsResponse], error) {
	return c.listItems.CallUnary(ctx, req)
}

func (c *catalogServiceClient) DeleteItem(ctx context.Context, req *connect.Request[DeleteItemRequest]) (*connect.Response[DeleteItemResponse], error) {
	return c.deleteItem.CallUnary(ctx, req)
}
