package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Client talks to the Cloudinary upload API. Product images are uploaded into
// the "products" folder and destroyed by public id when the product goes away.
type Client struct {
	CloudName  string
	APIKey     string
	APISecret  string
	HTTPClient *http.Client
}

type UploadResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

func NewClient(cloudName, apiKey, apiSecret string) *Client {
	return &Client{
		CloudName:  cloudName,
		APIKey:     apiKey,
		APISecret:  apiSecret,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Upload(ctx context.Context, image, folder string) (*UploadResult, error) {
	params := url.Values{}
	params.Set("folder", folder)
	params.Set("timestamp", fmt.Sprint(time.Now().Unix()))
	params.Set("signature", c.signature(params))
	params.Set("api_key", c.APIKey)
	params.Set("file", image)

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", c.CloudName)
	var result UploadResult
	if err := c.post(ctx, endpoint, params, &result); err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	return &result, nil
}

func (c *Client) Destroy(ctx context.Context, publicID string) error {
	params := url.Values{}
	params.Set("public_id", publicID)
	params.Set("timestamp", fmt.Sprint(time.Now().Unix()))
	params.Set("signature", c.signature(params))
	params.Set("api_key", c.APIKey)

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/destroy", c.CloudName)
	if err := c.post(ctx, endpoint, params, &struct{}{}); err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("unexpected status %d: %s", res.StatusCode, body)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// signature is the SHA-1 of the sorted request params joined with the API
// secret, excluding file, api_key and the signature itself.
func (c *Client) signature(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.APISecret))
	return hex.EncodeToString(sum[:])
}
