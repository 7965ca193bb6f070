package lansweeper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Record is one remote asset as returned by the lookup query.
type Record struct {
	// Key is the opaque asset key used for updates.
	Key string
	// Name is the asset display name.
	Name string
	// URL is a link to the asset in the Lansweeper UI.
	URL string
	// Fields maps remote custom-field names (e.g. "barCode", "purchaseDate")
	// to their raw values as reported by the service.
	Fields map[string]string
}

// Client defines the interface for remote asset operations.
type Client interface {
	// AssetsBySerial returns every asset matching the given serial number.
	// Zero, one, or many records may be returned; the caller decides how to
	// treat ambiguity.
	AssetsBySerial(ctx context.Context, serial string) ([]Record, error)
	// EditAsset applies the given custom-field values to the asset identified
	// by key. Only changed fields are sent; date values must be wrapped with
	// DateValue.
	EditAsset(ctx context.Context, key string, fields map[string]any) error
}

// DateValue wraps a UTC timestamp string for a date-typed custom field.
// The service expects date inputs as {"value": "2006-01-02T00:00:00Z"}.
func DateValue(timestamp string) map[string]string {
	return map[string]string{"value": timestamp}
}

const assetsBySerialQuery = `
query GetAssetsBySerial($siteId: ID!, $serialNumber: String!) {
    site(id: $siteId) {
        assetResources(
            assetPagination: { limit: 10 }
            filters: {
                conjunction: AND
                groups: [{
                    filters: [{
                        path: "assetBasicInfo.serialNumber"
                        operator: EQUAL
                        value: $serialNumber
                    }]
                }]
            }
        ) {
            total
            items {
                key
                assetBasicInfo {
                    name
                    serialNumber
                }
                assetCustom {
                    barCode
                    purchaseDate
                    warrantyDate
                }
                url
            }
        }
    }
}`

const editAssetMutation = `
mutation EditAsset($siteId: ID!, $key: ID!, $customFields: AssetCustomInput!) {
    site(id: $siteId) {
        editAsset(
            key: $key
            fields: {
                assetCustom: $customFields
            }
        ) {
            assetCustom {
                barCode
                purchaseDate
                warrantyDate
            }
        }
    }
}`

// NewClient creates a new Lansweeper API client based on the configuration.
func NewClient(cfg Config) Client {
	// Ensure timeout defaults if not set
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	// Create custom transport with strict timeouts
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	return &apiClient{
		endpoint: cfg.Endpoint,
		siteID:   cfg.SiteID,
		token:    cfg.Token,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeoutDuration,
		},
	}
}

type apiClient struct {
	endpoint string
	siteID   string
	token    string
	http     *http.Client
}

// graphqlRequest is the JSON envelope posted to the endpoint.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// graphqlResponse is the JSON envelope returned by the endpoint.
// Errors and data may both be present; a non-empty errors array always wins.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// post executes one GraphQL call and decodes the data payload into out.
func (c *apiClient) post(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(envelope.Errors) > 0 {
		apiErr := &APIError{}
		for _, e := range envelope.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &TransportError{Err: fmt.Errorf("unexpected response structure: %w", err)}
		}
	}

	return nil
}

// assetItem mirrors the lookup query's item shape.
type assetItem struct {
	Key            string `json:"key"`
	AssetBasicInfo struct {
		Name         string `json:"name"`
		SerialNumber string `json:"serialNumber"`
	} `json:"assetBasicInfo"`
	AssetCustom *struct {
		BarCode      string `json:"barCode"`
		PurchaseDate string `json:"purchaseDate"`
		WarrantyDate string `json:"warrantyDate"`
	} `json:"assetCustom"`
	URL string `json:"url"`
}

func (c *apiClient) AssetsBySerial(ctx context.Context, serial string) ([]Record, error) {
	var payload struct {
		Site struct {
			AssetResources struct {
				Total int         `json:"total"`
				Items []assetItem `json:"items"`
			} `json:"assetResources"`
		} `json:"site"`
	}

	variables := map[string]any{
		"siteId":       c.siteID,
		"serialNumber": serial,
	}

	if err := c.post(ctx, assetsBySerialQuery, variables, &payload); err != nil {
		return nil, err
	}

	items := payload.Site.AssetResources.Items
	records := make([]Record, 0, len(items))
	for _, item := range items {
		record := Record{
			Key:    item.Key,
			Name:   item.AssetBasicInfo.Name,
			URL:    item.URL,
			Fields: map[string]string{},
		}
		// assetCustom comes back null for assets with no custom data.
		if item.AssetCustom != nil {
			record.Fields["barCode"] = item.AssetCustom.BarCode
			record.Fields["purchaseDate"] = item.AssetCustom.PurchaseDate
			record.Fields["warrantyDate"] = item.AssetCustom.WarrantyDate
		}
		records = append(records, record)
	}

	return records, nil
}

func (c *apiClient) EditAsset(ctx context.Context, key string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	variables := map[string]any{
		"siteId":       c.siteID,
		"key":          key,
		"customFields": fields,
	}

	return c.post(ctx, editAssetMutation, variables, nil)
}
