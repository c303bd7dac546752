package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/schemas"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
)

const presignedURLTTL = 15 * time.Minute

type GetRecordInput struct {
	StoreID  string `path:"storeId"`
	Key      string `path:"key"`
	Download string `query:"download" doc:"Set to 'presigned' to receive a redirect to a time-bounded download URL"`
}

type GetRecordOutput struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	Body        []byte
}

type PutRecordInput struct {
	StoreID     string `path:"storeId"`
	Key         string `path:"key"`
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

type DeleteRecordInput struct {
	StoreID string `path:"storeId"`
	Key     string `path:"key"`
}

type ListKeysInput struct {
	StoreID           string `path:"storeId"`
	Limit             int    `query:"limit"`
	ExclusiveStartKey string `query:"exclusiveStartKey"`
}

type ListKeysOutput struct {
	Body struct {
		Data schemas.KeyValueListResponse `json:"data"`
	}
}

// RegisterKeyValueStores registers the key-value record endpoints:
// GET/PUT/DELETE on a single record plus key listing.
func RegisterKeyValueStores(api huma.API, svcs *Services) {
	huma.Register(api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/v2/key-value-stores/{storeId}/records/{key}",
		Summary:     "Read a record; 204 when the key is absent",
		Tags:        []string{"Key-Value Stores"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *GetRecordInput) (*GetRecordOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		storeID, err := resolveKeyValueStoreID(ctx, svcs, principal, input.StoreID)
		if err != nil {
			return nil, translate(err)
		}

		if input.Download == "presigned" {
			url, err := svcs.KeyValueStores.PresignedURL(ctx, storeID, input.Key, presignedURLTTL)
			if err != nil {
				return nil, translate(err)
			}
			return &GetRecordOutput{Status: http.StatusFound, Location: url}, nil
		}

		record, err := svcs.KeyValueStores.Get(ctx, storeID, input.Key)
		if err != nil {
			return nil, translate(err)
		}
		if record == nil {
			return &GetRecordOutput{Status: http.StatusNoContent}, nil
		}
		return &GetRecordOutput{Status: http.StatusOK, ContentType: record.ContentType, Body: record.Body}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-record",
		Method:      http.MethodPut,
		Path:        "/v2/key-value-stores/{storeId}/records/{key}",
		Summary:     "Write a record, overwriting any existing value",
		Tags:        []string{"Key-Value Stores"},
		Security:    bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *PutRecordInput) (*struct{}, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		storeID, err := resolveKeyValueStoreID(ctx, svcs, principal, input.StoreID)
		if err != nil {
			return nil, translate(err)
		}
		contentType := input.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := svcs.KeyValueStores.Put(ctx, storeID, input.Key, input.RawBody, contentType); err != nil {
			return nil, translate(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-record",
		Method:        http.MethodDelete,
		Path:          "/v2/key-value-stores/{storeId}/records/{key}",
		Summary:       "Delete a record; idempotent",
		Tags:          []string{"Key-Value Stores"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteRecordInput) (*struct{}, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		storeID, err := resolveKeyValueStoreID(ctx, svcs, principal, input.StoreID)
		if err != nil {
			return nil, translate(err)
		}
		if err := svcs.KeyValueStores.Delete(ctx, storeID, input.Key); err != nil {
			return nil, translate(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-record-keys",
		Method:      http.MethodGet,
		Path:        "/v2/key-value-stores/{storeId}/keys",
		Summary:     "List keys in lexicographic order",
		Tags:        []string{"Key-Value Stores"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ListKeysInput) (*ListKeysOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		storeID, err := resolveKeyValueStoreID(ctx, svcs, principal, input.StoreID)
		if err != nil {
			return nil, translate(err)
		}
		result, err := svcs.KeyValueStores.ListKeys(ctx, storeID, input.Limit, input.ExclusiveStartKey)
		if err != nil {
			return nil, translate(err)
		}
		out := &ListKeysOutput{}
		out.Body.Data = schemas.KeyValueListResponse{
			Keys:                  result.Keys,
			IsTruncated:           result.IsTruncated,
			NextExclusiveStartKey: result.NextExclusiveStartKey,
		}
		return out, nil
	})
}

// resolveKeyValueStoreID resolves the reserved "default" alias in a path
// parameter to principal's own concrete key-value store id.
func resolveKeyValueStoreID(ctx context.Context, svcs *Services, principal *auth.Principal, raw string) (string, error) {
	return resolveStorageID(ctx, raw, principal, func(ctx context.Context, principalID string) (string, error) {
		store, err := svcs.KeyValueStores.ResolveDefault(ctx, principalID)
		if err != nil {
			return "", err
		}
		return store.ID, nil
	})
}
