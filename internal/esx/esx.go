// Package esx indexes auth audit events into Elasticsearch.
package esx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/lo"

	"github.com/JunaYa/ferriskey/internal/config"
)

type Client = es8.Client

func Open(cfg *config.Config) (*Client, func(), error) {
	if strings.TrimSpace(cfg.ES.Addrs) == "" {
		return nil, func() {}, nil
	}
	raw := strings.Split(cfg.ES.Addrs, ",")
	addrs := lo.FilterMap(raw, func(s string, _ int) (string, bool) {
		t := strings.TrimSpace(s)
		return t, t != ""
	})
	es, err := es8.NewClient(es8.Config{Addresses: addrs, Username: cfg.ES.Username, Password: cfg.ES.Password})
	if err != nil {
		return nil, func() {}, err
	}
	return es, func() {}, nil
}

// AuthEventDoc is an audit record of a resolution or provisioning outcome.
type AuthEventDoc struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	RealmID  string `json:"realm_id"`
	DeviceID string `json:"device_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Mode     string `json:"mode,omitempty"`
	At       string `json:"at"`
}

func IndexAuthEvent(ctx context.Context, es *Client, index string, doc AuthEventDoc) error {
	if es == nil {
		return nil
	}
	b, _ := json.Marshal(doc)
	res, err := es.Index(index, bytes.NewReader(b), es.Index.WithDocumentID(doc.ID), es.Index.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return fmtError(res)
	}
	return nil
}

// SearchAuthEvents runs a filtered query over the audit index. Empty filters
// are dropped so a bare search returns the most recent events.
func SearchAuthEvents(ctx context.Context, es *Client, index string, realmID, deviceID string, from, size int) (map[string]any, error) {
	if es == nil {
		return map[string]any{"hits": []any{}}, nil
	}
	var filters []map[string]any
	if realmID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"realm_id": realmID}})
	}
	if deviceID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"device_id": deviceID}})
	}
	query := map[string]any{"bool": map[string]any{"filter": filters}}
	if len(filters) == 0 {
		query = map[string]any{"match_all": map[string]any{}}
	}
	q := map[string]any{
		"query": query,
		"sort":  []map[string]any{{"at": map[string]any{"order": "desc"}}},
	}
	b, _ := json.Marshal(q)
	res, err := es.Search(es.Search.WithContext(ctx), es.Search.WithIndex(index),
		es.Search.WithBody(bytes.NewReader(b)), es.Search.WithFrom(from), es.Search.WithSize(size))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmtError(res)
	}
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return out, nil
}

func fmtError(res *esapi.Response) error { return fmt.Errorf("es error: %s", res.String()) }
