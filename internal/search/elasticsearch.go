package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/models"
)

// ElasticClient indexes challan summaries for the reporting side
type ElasticClient struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		index:  config.FormatIndex(cfg),
	}, nil
}

// IndexChallan indexes a challan summary under its id
func (c *ElasticClient) IndexChallan(ctx context.Context, summary models.ChallanSummary) error {
	doc := map[string]interface{}{
		"id":            summary.ID,
		"customer_name": summary.CustomerName,
		"challan_no":    summary.ChallanNo,
		"created_at":    summary.CreatedAt,
		"total_items":   summary.TotalItems,
		"total_price":   summary.TotalPrice,
		"download_url":  summary.DownloadURL,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal challan document")
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatUint(uint64(summary.ID), 10),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Uint("challan_id", summary.ID).Str("index", c.index).Msg("challan indexed")
	return nil
}
