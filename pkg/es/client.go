// Package es provides Elasticsearch client construction and index helpers.
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"docbrain-go/internal/config"
	"docbrain-go/internal/model"
	"docbrain-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// NewClient creates a client for the comma separated addresses in cfg.
func NewClient(cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	if strings.TrimSpace(cfg.Addresses) == "" {
		return nil, fmt.Errorf("elasticsearch addresses are not configured")
	}
	addrs := strings.Split(cfg.Addresses, ",")
	for i := range addrs {
		addrs[i] = strings.TrimSpace(addrs[i])
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addrs,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
}

// IndexMapping returns the mapping for a chunk index with dims-sized vectors.
func IndexMapping(dims int) string {
	return fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"chunk_id": { "type": "keyword" },
				"document_id": { "type": "keyword" },
				"document_name": { "type": "keyword" },
				"chunk_index": { "type": "integer" },
				"text": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, dims)
}

// EnsureIndex creates indexName when it does not exist yet.
func EnsureIndex(ctx context.Context, client *elasticsearch.Client, indexName string, dims int) error {
	res, err := client.Indices.Exists([]string{indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %q: %w", indexName, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("[ES] index '%s' already exists", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %q: unexpected status %d", indexName, res.StatusCode)
	}

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(strings.NewReader(IndexMapping(dims))),
	)
	if err != nil {
		return fmt.Errorf("create index %q: %w", indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %q: %s", indexName, res.String())
	}
	log.Infof("[ES] index '%s' created, dims=%d", indexName, dims)
	return nil
}

// IndexDocument writes one chunk document, refreshing so it is searchable at once.
func IndexDocument(ctx context.Context, client *elasticsearch.Client, indexName string, doc model.EsChunk) (*esapi.Response, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: doc.ChunkID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	return req.Do(ctx, client)
}
