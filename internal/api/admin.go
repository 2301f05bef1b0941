package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Resource names an admin-managed collection on the backend.
type Resource string

const (
	ResourceSections         Resource = "sections"
	ResourcePrayerTimes      Resource = "prayer-times"
	ResourceAdhkar           Resource = "adhkar"
	ResourceAdhkarCategories Resource = "adhkar-categories"
	ResourceHadiths          Resource = "hadiths"
	ResourceSpecialTopics    Resource = "special-topics"
)

// Resources lists every admin resource.
var Resources = []Resource{
	ResourceSections,
	ResourcePrayerTimes,
	ResourceAdhkar,
	ResourceAdhkarCategories,
	ResourceHadiths,
	ResourceSpecialTopics,
}

// ParseResource validates a resource name.
func ParseResource(s string) (Resource, error) {
	for _, r := range Resources {
		if string(r) == s {
			return r, nil
		}
	}
	names := make([]string, len(Resources))
	for i, r := range Resources {
		names[i] = string(r)
	}
	return "", fmt.Errorf("unknown resource %q; valid resources: %s", s, strings.Join(names, ", "))
}

// AdminList lists or searches a resource with the caller's token. The raw
// JSON body is returned since each resource has its own envelope key.
func (c *Client) AdminList(ctx context.Context, res Resource, q url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/"+string(res)+"/list", q, true, &out); err != nil {
		return nil, fmt.Errorf("list %s: %w", res, err)
	}
	return out, nil
}

// Create posts fields as a multipart form to the resource collection.
func (c *Client) Create(ctx context.Context, res Resource, fields map[string]string) (*MutationResponse, error) {
	out, err := c.mutate(ctx, http.MethodPost, res, nil, fields)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", res, err)
	}
	return out, nil
}

// Update puts fields as a multipart form. The target is selected by q
// (id, or day/month/section for prayer times).
func (c *Client) Update(ctx context.Context, res Resource, q url.Values, fields map[string]string) (*MutationResponse, error) {
	out, err := c.mutate(ctx, http.MethodPut, res, q, fields)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", res, err)
	}
	return out, nil
}

// Delete removes the record selected by q.
func (c *Client) Delete(ctx context.Context, res Resource, q url.Values) (*MutationResponse, error) {
	out, err := c.mutate(ctx, http.MethodDelete, res, q, nil)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", res, err)
	}
	return out, nil
}

func (c *Client) mutate(ctx context.Context, method string, res Resource, q url.Values, fields map[string]string) (*MutationResponse, error) {
	var (
		body        *bytes.Buffer
		contentType string
	)
	if fields != nil {
		var err error
		body, contentType, err = multipartBody(fields)
		if err != nil {
			return nil, err
		}
	}

	var out MutationResponse
	var err error
	if body != nil {
		err = c.do(ctx, method, "/"+string(res), q, body, contentType, true, &out)
	} else {
		err = c.do(ctx, method, "/"+string(res), q, nil, "", true, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// multipartBody encodes fields in key order so requests are reproducible.
func multipartBody(fields map[string]string) (*bytes.Buffer, string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("encode field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
