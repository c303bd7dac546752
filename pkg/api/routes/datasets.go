package routes

import (
	"encoding/json"
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/schemas"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
)

// PushItemsInput accepts either a single JSON object or an array of
// objects as the request body.
type PushItemsInput struct {
	DatasetID string `path:"datasetId"`
	RawBody   []byte
}

type PushItemsOutput struct {
	Body struct {
		Data schemas.PushItemsResponse `json:"data"`
	}
}

type ListItemsInput struct {
	DatasetID string `path:"datasetId"`
	Offset    int64  `query:"offset"`
	Limit     int64  `query:"limit"`
}

type ListItemsOutput struct {
	PaginationTotal  string `header:"x-apify-pagination-total"`
	PaginationOffset string `header:"x-apify-pagination-offset"`
	PaginationLimit  string `header:"x-apify-pagination-limit"`
	Body             struct {
		Data []json.RawMessage `json:"data"`
	}
}

type GetItemInput struct {
	DatasetID string `path:"datasetId"`
	Index     int64  `path:"index"`
	Download  string `query:"download" doc:"Set to 'presigned' to receive a redirect to a time-bounded download URL"`
}

type GetItemOutput struct {
	Status   int
	Location string `header:"Location"`
}

// RegisterDatasets registers the dataset item endpoints.
func RegisterDatasets(api huma.API, svcs *Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "push-dataset-items",
		Method:        http.MethodPost,
		Path:          "/v2/datasets/{datasetId}/items",
		Summary:       "Push one or many items to a dataset",
		Tags:          []string{"Datasets"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *PushItemsInput) (*PushItemsOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		datasetID, err := resolveDatasetID(ctx, svcs, principal, input.DatasetID)
		if err != nil {
			return nil, translate(err)
		}

		items, err := normalizeItems(input.RawBody)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid item payload", err)
		}

		result, err := svcs.Datasets.PushItems(ctx, datasetID, items)
		if err != nil {
			return nil, translate(err)
		}

		out := &PushItemsOutput{}
		out.Body.Data = schemas.PushItemsResponse{FirstIndex: result.FirstIndex, ItemCount: result.ItemCount}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-dataset-items",
		Method:      http.MethodGet,
		Path:        "/v2/datasets/{datasetId}/items",
		Summary:     "List dataset items in insertion order",
		Tags:        []string{"Datasets"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ListItemsInput) (*ListItemsOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		datasetID, err := resolveDatasetID(ctx, svcs, principal, input.DatasetID)
		if err != nil {
			return nil, translate(err)
		}

		result, err := svcs.Datasets.ListItems(ctx, datasetID, input.Offset, input.Limit)
		if err != nil {
			return nil, translate(err)
		}

		out := &ListItemsOutput{
			PaginationTotal:  strconv.FormatInt(result.Total, 10),
			PaginationOffset: strconv.FormatInt(result.Offset, 10),
			PaginationLimit:  strconv.FormatInt(result.Limit, 10),
		}
		out.Body.Data = result.Items
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dataset-item",
		Method:      http.MethodGet,
		Path:        "/v2/datasets/{datasetId}/items/{index}",
		Summary:     "Redirect to a presigned URL for one item by index",
		Tags:        []string{"Datasets"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *GetItemInput) (*GetItemOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		if input.Download != "presigned" {
			return nil, huma.Error400BadRequest("only ?download=presigned is supported for single-item retrieval")
		}
		datasetID, err := resolveDatasetID(ctx, svcs, principal, input.DatasetID)
		if err != nil {
			return nil, translate(err)
		}

		url, err := svcs.Datasets.PresignedURL(ctx, datasetID, input.Index, presignedURLTTL)
		if err != nil {
			return nil, translate(err)
		}
		return &GetItemOutput{Status: http.StatusFound, Location: url}, nil
	})
}

// resolveDatasetID resolves the reserved "default" alias in a path
// parameter to principal's own concrete dataset id.
func resolveDatasetID(ctx context.Context, svcs *Services, principal *auth.Principal, raw string) (string, error) {
	return resolveStorageID(ctx, raw, principal, func(ctx context.Context, principalID string) (string, error) {
		ds, err := svcs.Datasets.ResolveDefault(ctx, principalID)
		if err != nil {
			return "", err
		}
		return ds.ID, nil
	})
}

// normalizeItems accepts either a single JSON object or a JSON array of
// objects and returns the individual items in order.
func normalizeItems(raw []byte) ([]json.RawMessage, error) {
	trimmed := trimLeadingSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	return []json.RawMessage{json.RawMessage(trimmed)}, nil
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}
